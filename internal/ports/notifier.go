package ports

import (
	"context"

	"github.com/polycopy/engine/internal/domain"
)

// Notifier presenta la actividad de cada ciclo al usuario.
type Notifier interface {
	// NotifyCopies muestra las réplicas decididas en un ciclo del copier.
	NotifyCopies(ctx context.Context, replicas []domain.ReplicaTrade, stats domain.CopyStats) error

	// NotifyResolutions muestra las réplicas liquidadas en un ciclo del resolver.
	NotifyResolutions(ctx context.Context, resolved []domain.ReplicaTrade, stats domain.ResolveStats) error
}
