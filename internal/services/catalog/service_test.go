package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

const listingCSV = `Name,NSE Code,BSE Code,Industry
Reliance Industries,RELIANCE,500325,Refineries
Tata Consultancy Services,TCS,532540,IT
Tata Motors,TATAMOTORS,500570,Automobiles
No Codes Here,,,Misc
`

type capturingEventService struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (c *capturingEventService) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (c *capturingEventService) Unsubscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (c *capturingEventService) Publish(ctx context.Context, event interfaces.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingEventService) PublishSync(ctx context.Context, event interfaces.Event) error {
	return c.Publish(ctx, event)
}

func (c *capturingEventService) Close() error { return nil }

func (c *capturingEventService) captured() []interfaces.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interfaces.Event(nil), c.events...)
}

func writeListingCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listing.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestCatalog(t *testing.T, csvPath string, bus interfaces.EventService) interfaces.CatalogService {
	t.Helper()
	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	config := &common.CatalogConfig{
		CSVPath:     csvPath,
		SearchLimit: 10,
	}
	return NewService(manager, bus, config, logger)
}

func TestReloadImportsListing(t *testing.T) {
	service := newTestCatalog(t, writeListingCSV(t, listingCSV), nil)
	ctx := context.Background()

	count, err := service.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "row without exchange codes is skipped")

	stored, err := service.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	// Reload replaces rather than appends
	count, err = service.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	stored, err = service.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
}

func TestReloadMissingCSV(t *testing.T) {
	service := newTestCatalog(t, filepath.Join(t.TempDir(), "absent.csv"), nil)

	count, err := service.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReloadPublishesCatalogEvent(t *testing.T) {
	bus := &capturingEventService{}
	service := newTestCatalog(t, writeListingCSV(t, listingCSV), bus)

	_, err := service.Reload(context.Background())
	require.NoError(t, err)

	events := bus.captured()
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.EventCatalogReloaded, events[0].Type)

	payload, ok := events[0].Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 3, payload["count"])
}

func TestSearchMatchesNameAndCodes(t *testing.T) {
	service := newTestCatalog(t, writeListingCSV(t, listingCSV), nil)
	ctx := context.Background()
	_, err := service.Reload(ctx)
	require.NoError(t, err)

	byName, err := service.Search(ctx, "tata")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byCode, err := service.Search(ctx, "reliance")
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, "Reliance Industries", byCode[0].Name)

	byBSE, err := service.Search(ctx, "532540")
	require.NoError(t, err)
	require.Len(t, byBSE, 1)
	assert.Equal(t, "TCS", byBSE[0].NSECode)
}

func TestSearchRequiresQuery(t *testing.T) {
	service := newTestCatalog(t, writeListingCSV(t, listingCSV), nil)

	_, err := service.Search(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestGetBySymbol(t *testing.T) {
	service := newTestCatalog(t, writeListingCSV(t, listingCSV), nil)
	ctx := context.Background()
	_, err := service.Reload(ctx)
	require.NoError(t, err)

	company, err := service.GetBySymbol(ctx, "tcs")
	require.NoError(t, err)
	assert.Equal(t, "Tata Consultancy Services", company.Name)

	byBSE, err := service.GetBySymbol(ctx, "500570")
	require.NoError(t, err)
	assert.Equal(t, "Tata Motors", byBSE.Name)

	_, err = service.GetBySymbol(ctx, "UNKNOWN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSchedulerLifecycle(t *testing.T) {
	service := newTestCatalog(t, writeListingCSV(t, listingCSV), nil).(*Service)

	// No schedule configured: scheduler stays disabled
	require.NoError(t, service.StartScheduler())
	assert.False(t, service.running)

	service.config.RefreshSchedule = "@every 1h"
	require.NoError(t, service.StartScheduler())
	assert.True(t, service.running)

	err := service.StartScheduler()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	service.StopScheduler()
	assert.False(t, service.running)
	service.StopScheduler()
}
