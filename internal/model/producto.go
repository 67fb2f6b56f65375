// Package model defines the persisted entities of the catalog. The structs
// mirror their database tables; JSON tags follow the public API vocabulary
// (Spanish field names, as consumed by the frontend).
package model

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Producto represents one row of the `productos` table. Optional columns are
// pointers so that NULL and zero can be told apart. The PDF blob itself is
// never embedded here: TienePDF is derived from `orden_trabajo_pdf IS NOT NULL`
// at query time, and the binary content travels only through the download
// endpoint.
type Producto struct {
	ID                 uint64    `json:"id"`                  // productos.id
	Nombre             string    `json:"nombre"`              // productos.nombre
	Precio             float64   `json:"precio"`              // productos.precio (DECIMAL(10,2))
	Descripcion        *string   `json:"descripcion"`         // productos.descripcion (nullable)
	Stock              *int64    `json:"stock"`               // productos.stock (nullable, >= 0)
	NumeroOT           *int64    `json:"numero_ot"`           // productos.numero_ot (nullable, > 0)
	TienePDF           bool      `json:"tiene_pdf"`           // derived: orden_trabajo_pdf IS NOT NULL
	FechaCreacion      time.Time `json:"fecha_creacion"`      // productos.fecha_creacion
	FechaActualizacion time.Time `json:"fecha_actualizacion"` // productos.fecha_actualizacion
	Activo             bool      `json:"activo"`              // productos.activo (soft-delete flag)
}

// precioPrinter groups thousands the way the original API formatted prices
// ($1,234.56).
var precioPrinter = message.NewPrinter(language.English)

// PrecioFormateado returns the price as a display string with currency sign
// and thousands separators.
func (p *Producto) PrecioFormateado() string {
	return precioPrinter.Sprintf("$%.2f", p.Precio)
}

// Estadisticas aggregates the active catalog, consistent with the default
// list scope.
type Estadisticas struct {
	TotalProductos    int64   `json:"total_productos"`
	ProductosConStock int64   `json:"productos_con_stock"`
	ProductosConPDF   int64   `json:"productos_con_pdf"`
	PrecioPromedio    float64 `json:"precio_promedio"`
}
