package businessflow_test

import (
	"sync"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	centerLat = 53.569
	centerLng = -2.881
	// one metre of latitude in degrees
	degPerMeter = 1.0 / 111195.0
)

func TestHousepartySubmit_TrustGate(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	require.NoError(t, env.fx.SetTrust("trusted", 3))
	require.NoError(t, env.fx.SetTrust("almost", 2))

	meta := businessflow.NewClientMetadata("203.0.113.45", "Mozilla/5.0 test agent")

	resp, err := env.parties.Submit(ctx, partyRequest("trusted", centerLat, centerLng), meta)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Houseparty.Status)
	assert.Equal(t, tonight, resp.Houseparty.Night)
	assert.Equal(t, "all-night", resp.Houseparty.Kind)

	stored, err := env.partyRepo.ByUUID(ctx, uuid.MustParse(resp.Houseparty.ID))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "203.0.113.0", stored.IPHint)
	assert.Len(t, stored.UAHash, 32)

	resp, err = env.parties.Submit(ctx, partyRequest("almost", centerLat+0.01, centerLng), nil)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Houseparty.Status)

	resp, err = env.parties.Submit(ctx, partyRequest("stranger", centerLat-0.01, centerLng), nil)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Houseparty.Status)
}

func TestHousepartySubmit_NearDuplicate(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	_, err := env.parties.Submit(ctx, partyRequest("host-1", centerLat, centerLng), nil)
	require.NoError(t, err)

	_, err = env.parties.Submit(ctx, partyRequest("host-2", centerLat+55*degPerMeter, centerLng), nil)
	assert.True(t, businessflow.IsDuplicate(err), "got %v", err)

	_, err = env.parties.Submit(ctx, partyRequest("host-3", centerLat+2000*degPerMeter, centerLng), nil)
	assert.NoError(t, err)

	// same spot, windows that do not overlap
	later := partyRequest("host-4", centerLat, centerLng)
	later.StartsAt = flowNow.Add(5 * time.Hour)
	later.EndsAt = flowNow.Add(6 * time.Hour)
	_, err = env.parties.Submit(ctx, later, nil)
	assert.NoError(t, err)

	// the rejected attempt left nothing behind
	count, err := env.partyRepo.Count(ctx, models.HousepartyFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestHousepartySubmit_AnyStatusBlocksDuplicates(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	for i, status := range []models.HousepartyStatus{
		models.HousepartyStatusRejected, models.HousepartyStatusHidden, models.HousepartyStatusPending,
	} {
		lat := centerLat + float64(i)*0.01
		_, err := env.fx.CreateHouseparty(tonight, "old-host", status,
			pointAt(lat, centerLng), flowNow, flowNow.Add(3*time.Hour))
		require.NoError(t, err)

		_, err = env.parties.Submit(ctx, partyRequest("new-host-"+string(status), lat, centerLng), nil)
		assert.True(t, businessflow.IsDuplicate(err), "%s: got %v", status, err)
	}
}

func TestHousepartySubmit_QuotaPerNight(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	for i := 0; i < 2; i++ {
		_, err := env.parties.Submit(ctx, partyRequest("busy", centerLat+float64(i)*0.01, centerLng), nil)
		require.NoError(t, err)
	}
	_, err := env.parties.Submit(ctx, partyRequest("busy", centerLat-0.02, centerLng), nil)
	assert.True(t, businessflow.IsQuotaExceeded(err), "got %v", err)

	count, err := env.partyRepo.Count(ctx, models.HousepartyFilter{AuthorUID: strPtr("busy")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

// submitConcurrently fires every request at once and returns one error per request
func submitConcurrently(env *flowEnv, reqs []*dto.SubmitHousepartyRequest) []error {
	errs := make([]error, len(reqs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *dto.SubmitHousepartyRequest) {
			defer wg.Done()
			<-start
			_, errs[i] = env.parties.Submit(ctxWithRequestID(), req, nil)
		}(i, req)
	}
	close(start)
	wg.Wait()
	return errs
}

// The in-memory database serialises connections; on postgres the night lock row
// does the same job.
func TestHousepartySubmit_ConcurrentQuota(t *testing.T) {
	env := newFlowEnv(t)

	reqs := make([]*dto.SubmitHousepartyRequest, 6)
	for i := range reqs {
		reqs[i] = partyRequest("racer", centerLat+float64(i)*0.005, centerLng)
	}

	accepted, quota := 0, 0
	for _, err := range submitConcurrently(env, reqs) {
		switch {
		case err == nil:
			accepted++
		case businessflow.IsQuotaExceeded(err):
			quota++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, config.DefaultHousepartyConfig().QuotaPerNight, accepted)
	assert.Equal(t, 4, quota)

	count, err := env.partyRepo.Count(ctxWithRequestID(), models.HousepartyFilter{AuthorUID: strPtr("racer")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	quotaRow, err := repository.NewSubmissionQuotaRepository(env.db.DB).ByKey(ctxWithRequestID(), "racer", tonight)
	require.NoError(t, err)
	require.NotNil(t, quotaRow)
	assert.Equal(t, 2, quotaRow.Count)
}

func TestHousepartySubmit_ConcurrentDuplicates(t *testing.T) {
	env := newFlowEnv(t)

	reqs := []*dto.SubmitHousepartyRequest{
		partyRequest("host-a", centerLat, centerLng),
		partyRequest("host-b", centerLat+20*degPerMeter, centerLng),
	}

	accepted, duplicates := 0, 0
	for _, err := range submitConcurrently(env, reqs) {
		switch {
		case err == nil:
			accepted++
		case businessflow.IsDuplicate(err):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, duplicates)

	count, err := env.partyRepo.Count(ctxWithRequestID(), models.HousepartyFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHousepartySubmit_Rejections(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	tests := []struct {
		name   string
		mutate func(r *dto.SubmitHousepartyRequest)
		check  func(error) bool
	}{
		{"outside geofence", func(r *dto.SubmitHousepartyRequest) { r.Lat, r.Lng = 53.4084, -2.9916 }, businessflow.IsGeofence},
		{"ends before start", func(r *dto.SubmitHousepartyRequest) { r.EndsAt = r.StartsAt.Add(-time.Minute) }, businessflow.IsValidation},
		{"tomorrow night", func(r *dto.SubmitHousepartyRequest) {
			r.StartsAt = flowNow.Add(24 * time.Hour)
			r.EndsAt = flowNow.Add(26 * time.Hour)
		}, businessflow.IsValidation},
		{"ends after rollover", func(r *dto.SubmitHousepartyRequest) { r.EndsAt = flowNow.Add(9 * time.Hour) }, businessflow.IsValidation},
		{"blocked word", func(r *dto.SubmitHousepartyRequest) { r.Notes = "no nazi stuff" }, businessflow.IsValidation},
		{"emoji only title", func(r *dto.SubmitHousepartyRequest) { r.Title = "🎉🎉" }, businessflow.IsValidation},
		{"unknown kind", func(r *dto.SubmitHousepartyRequest) { r.Kind = "rave" }, businessflow.IsValidation},
		{"anonymous", func(r *dto.SubmitHousepartyRequest) { r.AuthorUID = "" }, businessflow.IsAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := partyRequest("someone", centerLat, centerLng)
			tt.mutate(req)
			_, err := env.parties.Submit(ctx, req, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}

	count, err := env.partyRepo.Count(ctx, models.HousepartyFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)

	var quotaRows int64
	require.NoError(t, env.db.DB.Model(&models.SubmissionQuota{}).Count(&quotaRows).Error)
	assert.Zero(t, quotaRows)
}

func TestHousepartySubmit_SanitisesText(t *testing.T) {
	env := newFlowEnv(t)
	req := partyRequest("tidy", centerLat, centerLng)
	req.Title = "  Birthday 🎂 bash at number 12 with loads of people and a very long title  "
	req.Kind = "pres"

	resp, err := env.parties.Submit(ctxWithRequestID(), req, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(resp.Houseparty.Title)), 50)
	assert.NotContains(t, resp.Houseparty.Title, "🎂")
	assert.Equal(t, "pres", resp.Houseparty.Kind)
}

func TestHousepartyList(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	at := pointAt(centerLat, centerLng)

	_, err := env.fx.CreateHouseparty(tonight, "a", models.HousepartyStatusActive, at, flowNow, flowNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = env.fx.CreateHouseparty(tonight, "b", models.HousepartyStatusPending, at, flowNow, flowNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = env.fx.CreateHouseparty("20261013", "c", models.HousepartyStatusActive, at, flowNow.Add(-72*time.Hour), flowNow.Add(-70*time.Hour))
	require.NoError(t, err)
	_, err = env.fx.CreateHouseparty("20261001", "d", models.HousepartyStatusActive, at, flowNow.Add(-360*time.Hour), flowNow.Add(-358*time.Hour))
	require.NoError(t, err)

	resp, err := env.parties.List(ctx, &dto.ListHousepartiesRequest{})
	require.NoError(t, err)
	assert.Equal(t, "tonight", resp.Range)
	require.Len(t, resp.Houseparties, 1)
	assert.Empty(t, resp.Houseparties[0].AuthorUID)

	resp, err = env.parties.List(ctx, &dto.ListHousepartiesRequest{Range: "recent"})
	require.NoError(t, err)
	assert.Len(t, resp.Nights, 7)
	assert.Len(t, resp.Houseparties, 2)

	queue, err := env.parties.AdminList(ctx, &dto.AdminListHousepartiesRequest{})
	require.NoError(t, err)
	require.Len(t, queue.Houseparties, 1)
	assert.Equal(t, "b", queue.Houseparties[0].AuthorUID)
}

func TestHousepartyModerate(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	at := pointAt(centerLat, centerLng)

	pending, err := env.fx.CreateHouseparty(tonight, "a", models.HousepartyStatusPending, at, flowNow, flowNow.Add(time.Hour))
	require.NoError(t, err)

	resp, err := env.parties.Moderate(ctx, &dto.ModerateHousepartyRequest{
		ID: pending.ID.String(), Action: "approve", AdminUID: "admin-1", AdminEmail: "mod@example.com",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Houseparty.Status)
	require.NotNil(t, resp.Houseparty.ModeratedAt)
	require.NotNil(t, resp.Houseparty.ModeratedBy)
	assert.Equal(t, "mod@example.com", *resp.Houseparty.ModeratedBy)

	_, err = env.parties.Moderate(ctx, &dto.ModerateHousepartyRequest{ID: pending.ID.String(), Action: "reject"}, nil)
	assert.True(t, businessflow.IsInvalidTransition(err), "got %v", err)

	resp, err = env.parties.Moderate(ctx, &dto.ModerateHousepartyRequest{ID: pending.ID.String(), Action: "hide", AdminUID: "admin-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hidden", resp.Houseparty.Status)
	assert.NotNil(t, resp.Houseparty.HiddenAt)

	_, err = env.parties.Moderate(ctx, &dto.ModerateHousepartyRequest{ID: pending.ID.String(), Action: "approve"}, nil)
	assert.True(t, businessflow.IsInvalidTransition(err))

	_, err = env.parties.Moderate(ctx, &dto.ModerateHousepartyRequest{ID: uuid.NewString(), Action: "approve"}, nil)
	assert.True(t, businessflow.IsNotFound(err))

	_, err = env.parties.Moderate(ctx, &dto.ModerateHousepartyRequest{ID: "not-a-uuid", Action: "approve"}, nil)
	assert.True(t, businessflow.IsValidation(err))

	logs, err := env.auditRepo.ListByTarget(ctx, pending.ID.String(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
