package cache

import (
	"net"
	"testing"
	"time"

	"trafficwatch-backend/internal/config"
	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/pkg/logger"
	"trafficwatch-backend/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestManager(t *testing.T) *RedisCacheManager {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client := redis.NewClient(config.RedisConfig{
		Host:         host,
		Port:         port,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}, logger.New("error"))
	t.Cleanup(func() { client.Close() })

	cfg := DefaultCacheConfig()
	cfg.KeyPrefix = "test:cache:"

	return NewRedisCacheManager(client, cfg)
}

func testZone(name string) *models.TrafficZone {
	return &models.TrafficZone{
		ID:              primitive.NewObjectID(),
		Name:            name,
		District:        "Ludhiana",
		State:           "Punjab",
		CongestionLevel: "moderate",
		AvgSpeed:        32.5,
		VehicleCount:    140,
		Monitored:       true,
	}
}

func TestZoneCaching(t *testing.T) {
	m := newTestManager(t)
	zone := testZone("Clock Tower")

	require.NoError(t, m.SetZone(zone.ID.Hex(), zone, 30*time.Second))

	got, err := m.GetZone(zone.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, zone.Name, got.Name)
	assert.Equal(t, zone.District, got.District)
	assert.Equal(t, zone.CongestionLevel, got.CongestionLevel)

	// unknown id is a miss, not an error
	missing, err := m.GetZone(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, m.InvalidateZone(zone.ID.Hex()))
	gone, err := m.GetZone(zone.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestZoneListCaching(t *testing.T) {
	m := newTestManager(t)
	zones := []*models.TrafficZone{testZone("Clock Tower"), testZone("Bus Stand")}

	require.NoError(t, m.SetZoneList("all_zones", zones, time.Minute))
	require.NoError(t, m.SetZoneList("district_Ludhiana", zones, time.Minute))

	got, err := m.GetZoneList("all_zones")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Clock Tower", got[0].Name)

	require.NoError(t, m.InvalidateZoneLists())

	for _, key := range []string{"all_zones", "district_Ludhiana"} {
		got, err := m.GetZoneList(key)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestGenericOperations(t *testing.T) {
	m := newTestManager(t)

	payload := map[string]int{"activeIncidents": 4, "pendingReports": 2}
	require.NoError(t, m.Set("dashboard_stats", payload, 15*time.Second))

	var out map[string]int
	require.NoError(t, m.Get("dashboard_stats", &out))
	assert.Equal(t, 4, out["activeIncidents"])

	require.NoError(t, m.Delete(m.buildKey("generic", "dashboard_stats")))
}

func TestCacheStats(t *testing.T) {
	m := newTestManager(t)
	zone := testZone("Ferozepur Road")

	require.NoError(t, m.SetZone(zone.ID.Hex(), zone, time.Minute))

	_, err := m.GetZone(zone.ID.Hex())
	require.NoError(t, err)
	_, err = m.GetZone(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	stats := m.GetCacheStats()
	assert.Equal(t, int64(1), stats.TotalHits)
	assert.Equal(t, int64(1), stats.TotalMisses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestHealthCheck(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.HealthCheck())
}
