package matching

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pending []models.RideRequest
	rides   []models.Ride
}

func (f *fakeSource) ListPendingRequests(context.Context) ([]models.RideRequest, error) {
	return f.pending, nil
}

func (f *fakeSource) ListActiveRidesByDriver(context.Context, uuid.UUID) ([]models.Ride, error) {
	return f.rides, nil
}

var (
	driverID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	school   = models.Location{Latitude: -26.1076, Longitude: 28.0567, Address: "Sandton Primary"}
	home     = models.Location{Latitude: -26.1450, Longitude: 28.0410, Address: "12 Oak Ave"}
)

func testConfig() config.BusinessConfig {
	return config.BusinessConfig{
		DedupTolerance: 60 * time.Second,
		OfferWindow:    30 * time.Second,
		DeclineTTL:     24 * time.Hour,
	}
}

func request(id string, at time.Time) models.RideRequest {
	return models.RideRequest{
		ID:            uuid.MustParse(id),
		Origin:        home,
		Destination:   school,
		ScheduledTime: at,
		EstimatedFare: decimal.NewFromInt(45),
		Status:        models.RideStatusPending,
	}
}

func newTestService(t *testing.T, src RideSource) (*Service, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	svc := NewService(db, src, testConfig()).WithNow(func() time.Time { return fixedNow })
	return svc, mock
}

// ========================================
// DUPLICATE DETECTION TESTS
// ========================================

func TestIsDuplicate(t *testing.T) {
	at := fixedNow.Add(time.Hour)
	req := request("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", at)
	other := uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")

	tests := []struct {
		name string
		ride models.Ride
		want bool
	}{
		{"exact source match", models.Ride{SourceRequestID: &req.ID, Origin: school, Destination: home}, true},
		{"different source, same trip", models.Ride{SourceRequestID: &other, Origin: home, Destination: school, ScheduledTime: at}, false},
		{"legacy ride within tolerance", models.Ride{Origin: home, Destination: school, ScheduledTime: at.Add(59 * time.Second)}, true},
		{"legacy ride at tolerance", models.Ride{Origin: home, Destination: school, ScheduledTime: at.Add(-60 * time.Second)}, true},
		{"legacy ride outside tolerance", models.Ride{Origin: home, Destination: school, ScheduledTime: at.Add(61 * time.Second)}, false},
		{"legacy ride other route", models.Ride{Origin: school, Destination: home, ScheduledTime: at}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate(req, tt.ride, 60*time.Second))
		})
	}
}

// ========================================
// ELIGIBILITY TESTS
// ========================================

func TestListEligibleRequests_OfflineDriverSeesNothing(t *testing.T) {
	src := &fakeSource{pending: []models.RideRequest{request("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", fixedNow)}}
	svc, mock := newTestService(t, src)
	mock.ExpectExists(onlineKey(driverID)).SetVal(0)

	out, err := svc.ListEligibleRequests(context.Background(), driverID)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEligibleRequests_FiltersDeclinedAndHeldRequests(t *testing.T) {
	at := fixedNow.Add(time.Hour)
	declined := request("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", at)
	held := request("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", at)
	fresh := request("cccccccc-cccc-cccc-cccc-cccccccccccc", at)
	// same trip as held but a different request: stays visible
	twin := request("dddddddd-dddd-dddd-dddd-dddddddddddd", at)

	src := &fakeSource{
		pending: []models.RideRequest{declined, held, fresh, twin},
		rides:   []models.Ride{{SourceRequestID: &held.ID, Origin: home, Destination: school, ScheduledTime: at}},
	}
	svc, mock := newTestService(t, src)

	deadline := fixedNow.Add(30 * time.Second)
	deadlineMS := strconv.FormatInt(deadline.UnixMilli(), 10)
	mock.ExpectExists(onlineKey(driverID)).SetVal(1)
	mock.ExpectSMembers(declinedKey(driverID)).SetVal([]string{declined.ID.String()})
	mock.ExpectHSetNX(offersKey(driverID), fresh.ID.String(), deadlineMS).SetVal(true)
	mock.ExpectHSetNX(offersKey(driverID), twin.ID.String(), deadlineMS).SetVal(true)
	mock.ExpectExpire(offersKey(driverID), 24*time.Hour).SetVal(true)
	mock.ExpectHGetAll(offersKey(driverID)).SetVal(map[string]string{
		fresh.ID.String(): deadlineMS,
		twin.ID.String():  deadlineMS,
	})

	out, err := svc.ListEligibleRequests(context.Background(), driverID)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, fresh.ID, out[0].ID)
	assert.Equal(t, twin.ID, out[1].ID)
	assert.True(t, deadline.Equal(out[0].OfferExpiresAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEligibleRequests_LapsedOfferIsDeclined(t *testing.T) {
	req := request("cccccccc-cccc-cccc-cccc-cccccccccccc", fixedNow.Add(time.Hour))
	svc, mock := newTestService(t, &fakeSource{pending: []models.RideRequest{req}})

	lapsed := strconv.FormatInt(fixedNow.Add(-time.Second).UnixMilli(), 10)
	mock.ExpectExists(onlineKey(driverID)).SetVal(1)
	mock.ExpectSMembers(declinedKey(driverID)).SetVal([]string{})
	mock.ExpectHSetNX(offersKey(driverID), req.ID.String(), strconv.FormatInt(fixedNow.Add(30*time.Second).UnixMilli(), 10)).SetVal(false)
	mock.ExpectExpire(offersKey(driverID), 24*time.Hour).SetVal(true)
	mock.ExpectHGetAll(offersKey(driverID)).SetVal(map[string]string{req.ID.String(): lapsed})
	mock.ExpectSAdd(declinedKey(driverID), req.ID.String()).SetVal(1)
	mock.ExpectExpire(declinedKey(driverID), 24*time.Hour).SetVal(true)
	mock.ExpectHDel(offersKey(driverID), req.ID.String()).SetVal(1)

	out, err := svc.ListEligibleRequests(context.Background(), driverID)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ========================================
// PRESENCE TESTS
// ========================================

func TestSetOnline(t *testing.T) {
	t.Run("online", func(t *testing.T) {
		svc, mock := newTestService(t, &fakeSource{})
		mock.ExpectSet(onlineKey(driverID), "1", 0).SetVal("OK")

		require.NoError(t, svc.SetOnline(context.Background(), driverID, true))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("offline clears declined and offers", func(t *testing.T) {
		svc, mock := newTestService(t, &fakeSource{})
		mock.ExpectDel(onlineKey(driverID)).SetVal(1)
		mock.ExpectDel(declinedKey(driverID)).SetVal(1)
		mock.ExpectDel(offersKey(driverID)).SetVal(1)

		require.NoError(t, svc.SetOnline(context.Background(), driverID, false))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeclineRequest(t *testing.T) {
	requestID := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	svc, mock := newTestService(t, &fakeSource{})
	mock.ExpectSAdd(declinedKey(driverID), requestID.String()).SetVal(1)
	mock.ExpectExpire(declinedKey(driverID), 24*time.Hour).SetVal(true)
	mock.ExpectHDel(offersKey(driverID), requestID.String()).SetVal(0)

	require.NoError(t, svc.DeclineRequest(context.Background(), driverID, requestID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocation(t *testing.T) {
	svc, mock := newTestService(t, &fakeSource{})
	data, err := json.Marshal(&DriverLocation{DriverID: driverID, Latitude: home.Latitude, Longitude: home.Longitude, Timestamp: fixedNow})
	require.NoError(t, err)

	mock.ExpectSet(locationKey(driverID), data, defaultLocationTTL).SetVal("OK")
	require.NoError(t, svc.UpdateLocation(context.Background(), driverID, home.Latitude, home.Longitude))

	mock.ExpectGet(locationKey(driverID)).SetVal(string(data))
	loc, err := svc.GetLocation(context.Background(), driverID)
	require.NoError(t, err)
	assert.Equal(t, home.Latitude, loc.Latitude)

	mock.ExpectGet(locationKey(driverID)).RedisNil()
	_, err = svc.GetLocation(context.Background(), driverID)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
