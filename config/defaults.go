package config

import "time"

// DefaultEngineConfig returns the built-in engine settings
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Timezone:              "Europe/London",
		RolloverHour:          5,
		IntentYesFactor:       1.0,
		IntentMaybeFactor:     0.6,
		NearMeters:            1000,
		MidMeters:             3000,
		NearFactor:            1.0,
		MidFactor:             0.85,
		FarFactor:             0.7,
		DefaultDistanceMeters: 5000,
		FreshMinutes:          120,
		StaleMinutes:          240,
		FreshFactor:           1.0,
		StaleFactor:           0.8,
		OldFactor:             0.6,
		SameWeekdayWeeks:      8,
		RecentDays:            14,
		SameWeekdayWeight:     0.6,
		RecentWeight:          0.4,
		TopLimit:              10,
		LiveScoreMultiplier:   10,
		FanOutLimit:           8,
	}
}

// DefaultHousepartyConfig returns the built-in houseparty settings
func DefaultHousepartyConfig() HousepartyConfig {
	return HousepartyConfig{
		CenterLat:        53.569,
		CenterLng:        -2.881,
		RadiusMeters:     5500,
		QuotaPerNight:    2,
		DedupMeters:      150,
		TrustThreshold:   3,
		TitleMaxLength:   50,
		AddressMaxLength: 120,
		NotesMaxLength:   300,
		RecentNights:     7,
	}
}

// DefaultReportsConfig returns the built-in reports settings
func DefaultReportsConfig() ReportsConfig {
	return ReportsConfig{
		ReviewWindow:       24 * time.Hour,
		Threshold:          3,
		AdminWindowHours:   48,
		ReasonMaxLength:    140,
		SweepOnEveryReport: true,
	}
}

// DefaultSchedulerConfig returns the built-in scheduler settings
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		Timezone:          "Europe/London",
		GenerateSpec:      "0 19 * * *",
		SweepSpec:         "*/15 * * * *",
		BackfillMaxNights: 60,
		JobTimeout:        2 * time.Minute,
		QueueSize:         64,
		RecomputeDebounce: 2 * time.Second,
	}
}
