package models

// AllModels lists every persisted entity in migration order
func AllModels() []any {
	return []any{
		&Vote{},
		&HousepartySubmission{},
		&Report{},
		&VenueFlag{},
		&SubmissionQuota{},
		&UserProfile{},
		&NightLock{},
		&PredictionSummary{},
		&AuditLog{},
	}
}
