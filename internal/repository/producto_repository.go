package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/taller-ot/productos-api/internal/model"
)

// productoCols is the column list shared by every read of the productos
// table. The blob is never selected wholesale; tiene_pdf is derived instead.
const productoCols = `id, nombre, precio, descripcion, stock, numero_ot,
	orden_trabajo_pdf IS NOT NULL AS tiene_pdf,
	fecha_creacion, fecha_actualizacion, activo`

// Filtros narrows a product listing. Zero values mean "no filter"; the price
// bounds are pointers so 0 can be told apart from absent.
type Filtros struct {
	Nombre    string   // case-insensitive substring match on nombre
	PrecioMin *float64 // inclusive lower price bound
	PrecioMax *float64 // inclusive upper price bound
	ConStock  bool     // only products with stock > 0
	ConPDF    bool     // only products with an attachment
}

// ProductoRepo encapsulates all database access for the productos table.
type ProductoRepo struct {
	db *sql.DB
}

// NewProductoRepo constructs a ProductoRepo with the provided DB handle.
func NewProductoRepo(db *sql.DB) *ProductoRepo {
	return &ProductoRepo{db: db}
}

func scanProducto(row interface{ Scan(...any) error }, p *model.Producto) error {
	return row.Scan(&p.ID, &p.Nombre, &p.Precio, &p.Descripcion, &p.Stock,
		&p.NumeroOT, &p.TienePDF, &p.FechaCreacion, &p.FechaActualizacion, &p.Activo)
}

// List returns active products matching the filters, most recently created
// first.
func (r *ProductoRepo) List(ctx context.Context, f Filtros) ([]*model.Producto, error) {
	q := "SELECT " + productoCols + " FROM productos WHERE activo = 1"
	var args []any
	if f.Nombre != "" {
		q += " AND LOWER(nombre) LIKE LOWER(?)"
		args = append(args, "%"+f.Nombre+"%")
	}
	if f.PrecioMin != nil {
		q += " AND precio >= ?"
		args = append(args, *f.PrecioMin)
	}
	if f.PrecioMax != nil {
		q += " AND precio <= ?"
		args = append(args, *f.PrecioMax)
	}
	if f.ConStock {
		q += " AND stock > 0"
	}
	if f.ConPDF {
		q += " AND orden_trabajo_pdf IS NOT NULL"
	}
	q += " ORDER BY fecha_creacion DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Producto{}
	for rows.Next() {
		p := new(model.Producto)
		if err := scanProducto(rows, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches an active product by id. Soft-deleted rows report
// ErrProductoNotFound.
func (r *ProductoRepo) GetByID(ctx context.Context, id uint64) (*model.Producto, error) {
	q := "SELECT " + productoCols + " FROM productos WHERE id = ? AND activo = 1"
	p := new(model.Producto)
	if err := scanProducto(r.db.QueryRowContext(ctx, q, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductoNotFound
		}
		return nil, err
	}
	return p, nil
}

// ExistsActiveNombre reports whether an active product other than excludeID
// already uses the name, compared case-insensitively. It backs the validation
// layer's uniqueness check; the write transactions repeat the check under a
// row lock so concurrent requests cannot race past it.
func (r *ProductoRepo) ExistsActiveNombre(ctx context.Context, nombre string, excludeID uint64) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM productos WHERE activo = 1 AND LOWER(nombre) = LOWER(?) AND id <> ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, nombre, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// lockNombre re-checks name uniqueness inside tx, locking any matching active
// row. Returns ErrNombreDuplicado when another active product holds the name.
func lockNombre(ctx context.Context, tx *sql.Tx, nombre string, excludeID uint64) error {
	const q = `SELECT id FROM productos
		WHERE activo = 1 AND LOWER(nombre) = LOWER(?) AND id <> ? LIMIT 1 FOR UPDATE`
	var id uint64
	err := tx.QueryRowContext(ctx, q, nombre, excludeID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	default:
		return ErrNombreDuplicado
	}
}

// Create inserts a new product and, when pdf is non-empty, its attachment,
// inside one transaction. A PDF write failure therefore rolls back the base
// row as well. On success p is fully populated, including the DB-assigned id
// and timestamps. The error is named so the deferred commit can report its
// own failure.
func (r *ProductoRepo) Create(ctx context.Context, p *model.Producto, pdf []byte) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if err = lockNombre(ctx, tx, p.Nombre, 0); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		"INSERT INTO productos (nombre, precio, descripcion, stock, numero_ot) VALUES (?,?,?,?,?)",
		p.Nombre, p.Precio, p.Descripcion, p.Stock, p.NumeroOT)
	if err != nil {
		return err
	}
	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	if len(pdf) > 0 {
		if _, err = tx.ExecContext(ctx,
			"UPDATE productos SET orden_trabajo_pdf = ? WHERE id = ?", pdf, p.ID); err != nil {
			return err
		}
		p.TienePDF = true
	}
	err = tx.QueryRowContext(ctx,
		"SELECT fecha_creacion, fecha_actualizacion, activo FROM productos WHERE id = ?", p.ID).
		Scan(&p.FechaCreacion, &p.FechaActualizacion, &p.Activo)
	return err
}

// Update persists the merged field set of p and, when pdf is non-empty,
// replaces the attachment, all in one transaction. It returns
// ErrProductoNotFound when the row no longer exists or was soft-deleted, and
// ErrNombreDuplicado when the new name collides with another active product.
func (r *ProductoRepo) Update(ctx context.Context, p *model.Producto, pdf []byte) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if err = lockNombre(ctx, tx, p.Nombre, p.ID); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE productos SET nombre = ?, precio = ?, descripcion = ?, stock = ?, numero_ot = ?,
			fecha_actualizacion = NOW() WHERE id = ? AND activo = 1`,
		p.Nombre, p.Precio, p.Descripcion, p.Stock, p.NumeroOT, p.ID)
	if err != nil {
		return err
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		err = ErrProductoNotFound
		return err
	}
	if len(pdf) > 0 {
		if _, err = tx.ExecContext(ctx,
			"UPDATE productos SET orden_trabajo_pdf = ? WHERE id = ?", pdf, p.ID); err != nil {
			return err
		}
		p.TienePDF = true
	}
	err = tx.QueryRowContext(ctx,
		"SELECT fecha_creacion, fecha_actualizacion, activo FROM productos WHERE id = ?", p.ID).
		Scan(&p.FechaCreacion, &p.FechaActualizacion, &p.Activo)
	return err
}

// SoftDelete flips activo off. The row stays in the table for audit purposes
// but disappears from every listing and detail operation. Deleting an already
// inactive product reports ErrProductoNotFound.
func (r *ProductoRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE productos SET activo = 0, fecha_actualizacion = NOW() WHERE id = ? AND activo = 1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductoNotFound
	}
	return nil
}

// AjustarStock applies a stock increase or decrease of cantidad (> 0,
// enforced by the handler) as a row-locked read-modify-write, so concurrent
// adjustments to the same product serialize instead of losing updates.
// Decreases fail with ErrSinStock when stock was never configured and with
// ErrStockInsuficiente when cantidad exceeds the current stock; increases
// treat unset stock as zero. The resulting stock is returned.
func (r *ProductoRepo) AjustarStock(ctx context.Context, id uint64, cantidad int64, aumentar bool) (nuevo int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var stock sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT stock FROM productos WHERE id = ? AND activo = 1 FOR UPDATE", id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrProductoNotFound
		return 0, err
	}
	if err != nil {
		return 0, err
	}

	if aumentar {
		nuevo = stock.Int64 + cantidad // NULL counts as zero
	} else {
		if !stock.Valid {
			err = ErrSinStock
			return 0, err
		}
		if cantidad > stock.Int64 {
			err = ErrStockInsuficiente
			return 0, err
		}
		nuevo = stock.Int64 - cantidad
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE productos SET stock = ?, fecha_actualizacion = NOW() WHERE id = ?", nuevo, id); err != nil {
		return 0, err
	}
	return nuevo, nil
}

// GetPDF returns the stored attachment and the product name (used for the
// download filename). ErrSinPDF is returned when the product exists but
// carries no blob.
func (r *ProductoRepo) GetPDF(ctx context.Context, id uint64) ([]byte, string, error) {
	var (
		nombre string
		pdf    []byte
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT nombre, orden_trabajo_pdf FROM productos WHERE id = ? AND activo = 1", id).
		Scan(&nombre, &pdf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrProductoNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if len(pdf) == 0 {
		return nil, "", ErrSinPDF
	}
	return pdf, nombre, nil
}

// Estadisticas computes the aggregate counters over active products. All
// counters are zero (including the average price) when the active catalog is
// empty.
func (r *ProductoRepo) Estadisticas(ctx context.Context) (*model.Estadisticas, error) {
	const q = `SELECT COUNT(*),
		COALESCE(SUM(stock > 0), 0),
		COALESCE(SUM(orden_trabajo_pdf IS NOT NULL), 0),
		COALESCE(AVG(precio), 0)
		FROM productos WHERE activo = 1`
	var e model.Estadisticas
	if err := r.db.QueryRowContext(ctx, q).
		Scan(&e.TotalProductos, &e.ProductosConStock, &e.ProductosConPDF, &e.PrecioPromedio); err != nil {
		return nil, err
	}
	e.PrecioPromedio = math.Round(e.PrecioPromedio*100) / 100
	return &e, nil
}
