package businessflow_test

import (
	"testing"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReport_ThresholdOnEveryReport(t *testing.T) {
	tests := []struct {
		name       string
		reporters  int
		wantHidden bool
	}{
		{"two reporters stay visible", 2, false},
		{"three reporters hide", 3, true},
		{"four reporters hide", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newFlowEnv(t)
			ctx := ctxWithRequestID()
			party, err := env.fx.CreateHouseparty(tonight, "host", models.HousepartyStatusActive,
				pointAt(centerLat, centerLng), flowNow, flowNow.Add(time.Hour))
			require.NoError(t, err)

			hiddenBy := 0
			for i := 1; i <= tt.reporters; i++ {
				resp, err := env.reports.Report(ctx, &dto.ReportRequest{
					TargetKind:  "houseparty",
					TargetID:    party.ID.String(),
					Reason:      "spam",
					ReporterUID: uidN("reporter", i),
				}, nil)
				require.NoError(t, err)
				if resp.TargetHidden {
					hiddenBy = i
				}
			}

			stored, err := env.partyRepo.ByUUID(ctx, party.ID)
			require.NoError(t, err)
			if tt.wantHidden {
				assert.Equal(t, models.HousepartyStatusHidden, stored.Status)
				assert.NotNil(t, stored.HiddenAt)
				assert.Equal(t, 3, hiddenBy)
			} else {
				assert.Equal(t, models.HousepartyStatusActive, stored.Status)
				assert.Nil(t, stored.HiddenAt)
				assert.Zero(t, hiddenBy)
			}
		})
	}
}

func TestReport_SameReporterCountsOnce(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	for i := 0; i < 5; i++ {
		resp, err := env.reports.Report(ctx, &dto.ReportRequest{
			TargetKind: "venue", TargetID: "bravo", ReporterUID: "same-person",
		}, nil)
		require.NoError(t, err)
		assert.False(t, resp.TargetHidden)
	}
	flag, err := env.flagRepo.ByVenueID(ctx, "bravo")
	require.NoError(t, err)
	assert.Nil(t, flag)
}

func TestReport_AnonymousReportsCountSeparately(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	var last *dto.ReportResponse
	for i := 0; i < 3; i++ {
		resp, err := env.reports.Report(ctx, &dto.ReportRequest{TargetKind: "venue", TargetID: "bravo"}, nil)
		require.NoError(t, err)
		last = resp
	}
	assert.True(t, last.TargetHidden)

	flag, err := env.flagRepo.ByVenueID(ctx, "bravo")
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal(t, models.VenueStatusHidden, flag.Status)
}

func TestReport_PendingHousepartyIsNotHidden(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	party, err := env.fx.CreateHouseparty(tonight, "host", models.HousepartyStatusPending,
		pointAt(centerLat, centerLng), flowNow, flowNow.Add(time.Hour))
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		resp, err := env.reports.Report(ctx, &dto.ReportRequest{
			TargetKind: "houseparty", TargetID: party.ID.String(), ReporterUID: uidN("r", i),
		}, nil)
		require.NoError(t, err)
		assert.False(t, resp.TargetHidden)
	}
	stored, err := env.partyRepo.ByUUID(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HousepartyStatusPending, stored.Status)
}

func TestReport_InvalidTargets(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	_, err := env.reports.Report(ctx, &dto.ReportRequest{TargetKind: "venue", TargetID: "ghost"}, nil)
	assert.True(t, businessflow.IsValidation(err))

	_, err = env.reports.Report(ctx, &dto.ReportRequest{TargetKind: "houseparty", TargetID: uuid.NewString()}, nil)
	assert.True(t, businessflow.IsNotFound(err))

	_, err = env.reports.Report(ctx, &dto.ReportRequest{TargetKind: "user", TargetID: "x"}, nil)
	assert.True(t, businessflow.IsValidation(err))

	long := make([]rune, 141)
	for i := range long {
		long[i] = 'x'
	}
	_, err = env.reports.Report(ctx, &dto.ReportRequest{TargetKind: "venue", TargetID: "alpha", Reason: string(long)}, nil)
	assert.ErrorIs(t, err, businessflow.ErrReasonTooLong)
}

func TestSweep_ThresholdAndWindow(t *testing.T) {
	tests := []struct {
		name       string
		reporters  int
		wantHidden bool
	}{
		{"two", 2, false},
		{"three", 3, true},
		{"four", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newFlowEnv(t)
			ctx := ctxWithRequestID()
			party, err := env.fx.CreateHouseparty(tonight, "host", models.HousepartyStatusActive,
				pointAt(centerLat, centerLng), flowNow, flowNow.Add(time.Hour))
			require.NoError(t, err)

			for i := 1; i <= tt.reporters; i++ {
				_, err := env.fx.CreateReport(models.ReportTargetHouseparty, party.ID.String(),
					strPtr(uidN("r", i)), tonight, flowNow.Add(-time.Duration(i)*time.Hour))
				require.NoError(t, err)
			}
			// outside the review window
			for i := 1; i <= 3; i++ {
				_, err := env.fx.CreateReport(models.ReportTargetVenue, "alpha",
					strPtr(uidN("old", i)), "20261014", flowNow.Add(-30*time.Hour))
				require.NoError(t, err)
			}

			resp, err := env.reports.Sweep(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.TargetsEvaluated)
			if tt.wantHidden {
				assert.Equal(t, []string{"houseparty:" + party.ID.String()}, resp.Hidden)
			} else {
				assert.Empty(t, resp.Hidden)
			}

			again, err := env.reports.Sweep(ctx)
			require.NoError(t, err)
			assert.Empty(t, again.Hidden)

			flag, err := env.flagRepo.ByVenueID(ctx, "alpha")
			require.NoError(t, err)
			assert.Nil(t, flag)
		})
	}
}

func TestAdminReportsAndExport(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	for i := 1; i <= 3; i++ {
		_, err := env.fx.CreateReport(models.ReportTargetVenue, "bravo", strPtr(uidN("r", i)), tonight, flowNow.Add(-time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	_, err := env.fx.CreateReport(models.ReportTargetVenue, "charlie", nil, tonight, flowNow.Add(-time.Hour))
	require.NoError(t, err)
	_, err = env.fx.CreateReport(models.ReportTargetVenue, "echo", nil, "20261010", flowNow.Add(-100*time.Hour))
	require.NoError(t, err)
	_, err = env.reports.Sweep(ctx)
	require.NoError(t, err)

	resp, err := env.reports.AdminReports(ctx, &dto.AdminReportsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 48, resp.WindowHours)
	require.Len(t, resp.Targets, 2)
	assert.Equal(t, "bravo", resp.Targets[0].TargetID)
	assert.Equal(t, "Bravo Club", resp.Targets[0].TargetName)
	assert.Equal(t, 3, resp.Targets[0].DistinctReporters)
	assert.True(t, resp.Targets[0].Hidden)
	assert.False(t, resp.Targets[1].Hidden)

	wide, err := env.reports.AdminReports(ctx, &dto.AdminReportsRequest{WindowHours: 200, Night: "20261010"})
	require.NoError(t, err)
	require.Len(t, wide.Targets, 1)
	assert.Equal(t, "echo", wide.Targets[0].TargetID)

	_, err = env.reports.AdminReports(ctx, &dto.AdminReportsRequest{Kind: "user"})
	assert.True(t, businessflow.IsValidation(err))

	name, data, err := env.reports.ExportReports(ctx, &dto.AdminReportsRequest{})
	require.NoError(t, err)
	assert.Equal(t, "reports_20261016_48h.xlsx", name)

	xl, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer xl.Close()
	rows, err := xl.GetRows("reports")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "target_kind", rows[0][0])
	assert.Equal(t, "bravo", rows[1][1])
}
