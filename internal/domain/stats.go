package domain

// CopyStats cuenta los resultados del copier en el proceso actual.
type CopyStats struct {
	Copied     int
	Skipped    int
	Failed     int
	Duplicates int
	Untracked  int
}

// ResolveStats acumula los resultados del resolver en el proceso actual.
type ResolveStats struct {
	Wins     int
	Losses   int
	TotalPnL float64
}

// LifetimeStats es el resumen histórico leído del store (-report).
type LifetimeStats struct {
	TotalReplicas int
	ByStatus      map[CopyStatus]int
	Resolved      int
	Wins          int
	Losses        int
	RealizedPnL   float64
}
