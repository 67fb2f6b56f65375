// Package queue defines message payloads exchanged over the message broker.
package queue

// ProductoCreadoEvent is published after a product is successfully created.
// It carries enough information for downstream consumers (audit, analytics,
// notifications) without querying the primary database.
type ProductoCreadoEvent struct {
	ProductoID uint64  `json:"producto_id"`
	Nombre     string  `json:"nombre"`
	Precio     float64 `json:"precio"`
	TienePDF   bool    `json:"tiene_pdf"`
	Usuario    string  `json:"usuario"`
	CreadoEn   string  `json:"creado_en"`
}

// StockAjustadoEvent is published after a stock increase or decrease commits.
type StockAjustadoEvent struct {
	ProductoID  uint64 `json:"producto_id"`
	Direccion   string `json:"direccion"` // "aumentar" | "reducir"
	Cantidad    int64  `json:"cantidad"`
	StockActual int64  `json:"stock_actual"`
	Usuario     string `json:"usuario"`
	AjustadoEn  string `json:"ajustado_en"`
}
