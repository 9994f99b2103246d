package domain

// PlaceOrderRequest es la orden que enviamos al colaborador de ejecución.
// Un solo fill atómico: shares al precio dado, sin microestructura.
type PlaceOrderRequest struct {
	TokenID string
	Side    Side
	Price   float64
	Shares  float64
}

// NotionalUSD devuelve el notional de la orden en USD.
func (r PlaceOrderRequest) NotionalUSD() float64 {
	return r.Price * r.Shares
}

// PlacedOrder es el resultado de colocar una orden.
type PlacedOrder struct {
	OrderID string
	// Paper es true cuando la orden fue simulada localmente.
	Paper bool
}
