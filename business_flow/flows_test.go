package businessflow_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	testutil "github.com/amirphl/nightpulse/testing"
	"github.com/amirphl/nightpulse/utils"
	"github.com/stretchr/testify/require"
)

// 22:00 in London, inside night 20261016
var flowNow = time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC)

const tonight = "20261016"

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) NotifyVote(_ context.Context, mode models.VoteMode, night string) {
	n.events = append(n.events, string(mode)+":"+night)
}

type flowEnv struct {
	db       *testutil.TestDB
	fx       *testutil.TestFixtures
	nights   *utils.NightKeyResolver
	notifier *recordingNotifier

	votes      businessflow.VoteFlow
	summaries  businessflow.SummaryFlow
	parties    businessflow.HousepartyFlow
	reports    businessflow.ReportFlow
	auditRepo  repository.AuditLogRepository
	partyRepo  repository.HousepartyRepository
	flagRepo   repository.VenueFlagRepository
	summaryRep repository.PredictionSummaryRepository
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	clock := utils.FixedClock(flowNow)

	engine := config.DefaultEngineConfig()
	nights, err := utils.NewNightKeyResolver(engine.Timezone, engine.RolloverHour)
	require.NoError(t, err)
	calc, err := businessflow.NewVoteWeightCalculator(engine)
	require.NoError(t, err)

	venues := testutil.NewStaticVenues()
	voteRepo := repository.NewVoteRepository(tdb.DB)
	flagRepo := repository.NewVenueFlagRepository(tdb.DB)
	auditRepo := repository.NewAuditLogRepository(tdb.DB)
	summaryRepo := repository.NewPredictionSummaryRepository(tdb.DB)
	partyRepo := repository.NewHousepartyRepository(tdb.DB)

	tally := businessflow.NewTallyAggregator(voteRepo, venues, calc, engine.FanOutLimit, clock)
	blender := businessflow.NewPredictionBlender(engine, nights, tally)
	notifier := &recordingNotifier{}
	cacheCfg := config.CacheConfig{RedisPrefix: "test:"}

	return &flowEnv{
		db:       tdb,
		fx:       testutil.NewTestFixtures(tdb),
		nights:   nights,
		notifier: notifier,
		votes: businessflow.NewVoteFlow(voteRepo, flagRepo, auditRepo, tally, nights, venues,
			notifier, nil, cacheCfg, engine, clock),
		summaries: businessflow.NewSummaryFlow(summaryRepo, flagRepo, auditRepo, blender, nights, venues,
			nil, cacheCfg, 60, clock),
		parties: businessflow.NewHousepartyFlow(partyRepo, repository.NewNightLockRepository(tdb.DB),
			repository.NewSubmissionQuotaRepository(tdb.DB), repository.NewUserProfileRepository(tdb.DB),
			auditRepo, nights, config.DefaultHousepartyConfig(), tdb.DB, clock),
		reports: businessflow.NewReportFlow(repository.NewReportRepository(tdb.DB), partyRepo, flagRepo,
			auditRepo, venues, nights, config.DefaultReportsConfig(), clock),
		auditRepo:  auditRepo,
		partyRepo:  partyRepo,
		flagRepo:   flagRepo,
		summaryRep: summaryRepo,
	}
}

func ctxWithRequestID() context.Context {
	return context.WithValue(context.Background(), utils.RequestIDKey, "req-test")
}

func uidN(prefix string, i int) string {
	return fmt.Sprintf("%s-%02d", prefix, i)
}

// partyRequest builds a valid submission near the geofence centre
func partyRequest(uid string, lat, lng float64) *dto.SubmitHousepartyRequest {
	return &dto.SubmitHousepartyRequest{
		AuthorUID: uid,
		Title:     "Flat party",
		Address:   "12 Test Street",
		Lat:       lat,
		Lng:       lng,
		StartsAt:  flowNow.Add(30 * time.Minute),
		EndsAt:    flowNow.Add(4 * time.Hour),
	}
}

func pointAt(lat, lng float64) utils.LatLng {
	return utils.LatLng{Lat: lat, Lng: lng}
}

func strPtr(s string) *string {
	return &s
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
