package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// AdapterInfo describes a registered warehouse adapter.
type AdapterInfo struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// Factory connects to the warehouse described by cfg.
type Factory func(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (Warehouse, error)

// Registration pairs adapter info with its factory.
type Registration struct {
	Info    AdapterInfo
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for a warehouse type, or nil.
func GetFactory(whType string) Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := registry[whType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(whType string) bool {
	return GetFactory(whType) != nil
}

// ConfigOpener opens sessions using the registered factory for cfg.Type.
type ConfigOpener struct {
	cfg    *config.WarehouseConfig
	logger *zap.Logger
}

var _ Opener = (*ConfigOpener)(nil)

func NewOpener(cfg *config.WarehouseConfig, logger *zap.Logger) *ConfigOpener {
	return &ConfigOpener{cfg: cfg, logger: logger.Named("warehouse")}
}

// Open fails with apperrors.ErrUnsupportedWarehouse for unknown types and
// wraps apperrors.ErrNoWarehouseConnection around any connect failure.
func (o *ConfigOpener) Open(ctx context.Context) (Warehouse, error) {
	factory := GetFactory(o.cfg.Type)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedWarehouse, o.cfg.Type)
	}
	wh, err := factory(ctx, o.cfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrNoWarehouseConnection, err)
	}
	return wh, nil
}
