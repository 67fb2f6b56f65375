package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taller-ot/productos-api/internal/model"
	"github.com/taller-ot/productos-api/internal/queue"
	"github.com/taller-ot/productos-api/internal/repository"
	queue_publisher "github.com/taller-ot/productos-api/internal/service"
	"github.com/taller-ot/productos-api/internal/validator"
)

// pdfFormField is the multipart field carrying the work order attachment.
const pdfFormField = "orden_trabajo_pdf"

// ProductoHandler bundles the dependencies of the product endpoints.
type ProductoHandler struct {
	Repo *repository.ProductoRepo
}

func NewProductoHandler(repo *repository.ProductoRepo) *ProductoHandler {
	if repo == nil {
		panic("nil repository passed to NewProductoHandler")
	}
	return &ProductoHandler{Repo: repo}
}

// productoReq binds the writable fields of a create/update payload from JSON
// or multipart form data. Pointers keep "absent" distinguishable from zero
// for partial updates.
type productoReq struct {
	Nombre      *string  `json:"nombre" form:"nombre"`
	Precio      *float64 `json:"precio" form:"precio"`
	Descripcion *string  `json:"descripcion" form:"descripcion"`
	Stock       *int64   `json:"stock" form:"stock"`
	NumeroOT    *int64   `json:"numero_ot" form:"numero_ot"`
}

// productoResp decorates the entity with the computed display price.
type productoResp struct {
	*model.Producto
	PrecioFormateado string `json:"precio_formateado"`
}

func toResp(p *model.Producto) productoResp {
	return productoResp{Producto: p, PrecioFormateado: p.PrecioFormateado()}
}

// List handles GET /productos/ with optional filters: nombre (substring,
// case-insensitive), precio_min/precio_max (inclusive), con_stock=true,
// con_pdf=true. Only active products are returned, newest first.
func (h *ProductoHandler) List(c echo.Context) error {
	var f repository.Filtros
	f.Nombre = c.QueryParam("nombre")
	if v := c.QueryParam("precio_min"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "precio_min inválido"})
		}
		f.PrecioMin = &min
	}
	if v := c.QueryParam("precio_max"); v != "" {
		max, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "precio_max inválido"})
		}
		f.PrecioMax = &max
	}
	f.ConStock = c.QueryParam("con_stock") == "true"
	f.ConPDF = c.QueryParam("con_pdf") == "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Repo.List(ctx, f)
	if err != nil {
		c.Logger().Errorf("listar productos: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	out := make([]productoResp, 0, len(items))
	for _, p := range items {
		out = append(out, toResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /productos/:id/ and returns one active product.
func (h *ProductoHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id inválido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductoNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "producto no encontrado"})
		}
		c.Logger().Errorf("obtener producto %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	return c.JSON(http.StatusOK, toResp(p))
}

// Create handles POST /productos/. The body may be JSON or multipart form
// data; the attachment travels in the orden_trabajo_pdf file field. The base
// record and the PDF are persisted inside a single transaction, so a failed
// attachment write leaves nothing behind.
func (h *ProductoHandler) Create(c echo.Context) error {
	in, pdf, err := h.bindInput(c)
	if in == nil {
		return err // bindInput already wrote the response
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	errs, err := validator.Validar(in, false, 0, h.nombreOcupado(ctx))
	if err != nil {
		c.Logger().Errorf("validar producto: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	if !errs.Vacio() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "datos inválidos", "detalles": errs})
	}

	p := &model.Producto{
		Nombre:      *in.Nombre,
		Precio:      *in.Precio,
		Descripcion: in.Descripcion,
		Stock:       in.Stock,
		NumeroOT:    in.NumeroOT,
	}
	if err := h.Repo.Create(ctx, p, pdf); err != nil {
		if errors.Is(err, repository.ErrNombreDuplicado) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":    "datos inválidos",
				"detalles": validator.Errores{"nombre": {"ya existe un producto con este nombre"}},
			})
		}
		c.Logger().Errorf("crear producto %q: %v", p.Nombre, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	c.Logger().Infof("producto creado: %s (id=%d) por %s", p.Nombre, p.ID, currentUsername(c))

	if err := queue_publisher.PublishProductoCreado(ctx, queue.ProductoCreadoEvent{
		ProductoID: p.ID,
		Nombre:     p.Nombre,
		Precio:     p.Precio,
		TienePDF:   p.TienePDF,
		Usuario:    currentUsername(c),
		CreadoEn:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		c.Logger().Warnf("evento producto.creado no publicado: %v", err)
	}

	return c.JSON(http.StatusCreated, toResp(p))
}

// Update handles PUT and PATCH /productos/:id/. Only the provided fields are
// validated and applied; PUT additionally requires nombre and precio. A new
// attachment replaces the stored one within the same transaction as the base
// update.
func (h *ProductoHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id inválido"})
	}
	parcial := c.Request().Method == http.MethodPatch

	in, pdf, err := h.bindInput(c)
	if in == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	p, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductoNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "producto no encontrado"})
		}
		c.Logger().Errorf("obtener producto %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	errs, err := validator.Validar(in, parcial, id, h.nombreOcupado(ctx))
	if err != nil {
		c.Logger().Errorf("validar producto %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	if !errs.Vacio() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "datos inválidos", "detalles": errs})
	}

	// Merge the provided fields over the stored record.
	if in.Nombre != nil {
		p.Nombre = *in.Nombre
	}
	if in.Precio != nil {
		p.Precio = *in.Precio
	}
	if in.Descripcion != nil {
		p.Descripcion = in.Descripcion
	}
	if in.Stock != nil {
		p.Stock = in.Stock
	}
	if in.NumeroOT != nil {
		p.NumeroOT = in.NumeroOT
	}

	if err := h.Repo.Update(ctx, p, pdf); err != nil {
		switch {
		case errors.Is(err, repository.ErrNombreDuplicado):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":    "datos inválidos",
				"detalles": validator.Errores{"nombre": {"ya existe un producto con este nombre"}},
			})
		case errors.Is(err, repository.ErrProductoNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "producto no encontrado"})
		}
		c.Logger().Errorf("actualizar producto %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	c.Logger().Infof("producto actualizado: %s (id=%d) por %s", p.Nombre, p.ID, currentUsername(c))
	return c.JSON(http.StatusOK, toResp(p))
}

// Delete handles DELETE /productos/:id/ as a soft delete: the row keeps its
// history but disappears from listings. Repeating the delete yields 404, the
// inactive record is no longer addressable.
func (h *ProductoHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id inválido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductoNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "producto no encontrado"})
		}
		c.Logger().Errorf("eliminar producto %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	c.Logger().Infof("producto desactivado: id=%d por %s", id, currentUsername(c))
	return c.NoContent(http.StatusNoContent)
}

// DescargarOT handles GET /productos/:id/descargar-ot/ and streams the stored
// work order as an attachment.
func (h *ProductoHandler) DescargarOT(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id inválido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	pdf, nombre, err := h.Repo.GetPDF(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductoNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "producto no encontrado"})
		case errors.Is(err, repository.ErrSinPDF):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no hay PDF cargado para este producto"})
		}
		c.Logger().Errorf("descargar PDF %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	// Quoted so names with spaces survive; embedded quotes would break the
	// header, so they are stripped.
	nombreArchivo := strings.ReplaceAll(nombre, `"`, "")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="orden_trabajo_%d_%s.pdf"`, id, nombreArchivo))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// ReducirStock handles POST /productos/:id/reducir-stock/.
func (h *ProductoHandler) ReducirStock(c echo.Context) error {
	return h.ajustarStock(c, false)
}

// AumentarStock handles POST /productos/:id/aumentar-stock/.
func (h *ProductoHandler) AumentarStock(c echo.Context) error {
	return h.ajustarStock(c, true)
}

func (h *ProductoHandler) ajustarStock(c echo.Context, aumentar bool) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id inválido"})
	}
	var body struct {
		Cantidad *int64 `json:"cantidad" form:"cantidad"`
	}
	if err := c.Bind(&body); err != nil || body.Cantidad == nil || *body.Cantidad <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "la cantidad debe ser mayor a 0"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	nuevo, err := h.Repo.AjustarStock(ctx, id, *body.Cantidad, aumentar)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductoNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "producto no encontrado"})
		case errors.Is(err, repository.ErrSinStock), errors.Is(err, repository.ErrStockInsuficiente):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		c.Logger().Errorf("ajustar stock %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	direccion, verbo := "reducir", "reducido"
	if aumentar {
		direccion, verbo = "aumentar", "aumentado"
	}
	c.Logger().Infof("stock %s: producto=%d cantidad=%d por %s", verbo, id, *body.Cantidad, currentUsername(c))

	if err := queue_publisher.PublishStockAjustado(ctx, queue.StockAjustadoEvent{
		ProductoID:  id,
		Direccion:   direccion,
		Cantidad:    *body.Cantidad,
		StockActual: nuevo,
		Usuario:     currentUsername(c),
		AjustadoEn:  time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		c.Logger().Warnf("evento producto.stock no publicado: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"mensaje":      fmt.Sprintf("Stock %s exitosamente. Stock actual: %d", verbo, nuevo),
		"stock_actual": nuevo,
	})
}

// Estadisticas handles GET /productos/estadisticas/.
func (h *ProductoHandler) Estadisticas(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Repo.Estadisticas(ctx)
	if err != nil {
		c.Logger().Errorf("estadísticas: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	return c.JSON(http.StatusOK, e)
}

// bindInput extracts the writable fields plus the optional PDF upload. The
// raw upload size is rejected before reading the file, independently of the
// validator's own bound on the decoded blob. A nil Input means the response
// was already written; callers must return the accompanying error as is.
func (h *ProductoHandler) bindInput(c echo.Context) (*validator.Input, []byte, error) {
	var req productoReq
	if err := c.Bind(&req); err != nil {
		return nil, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "cuerpo de petición inválido"})
	}

	var pdf []byte
	if fh, err := c.FormFile(pdfFormField); err == nil && fh != nil {
		if fh.Size > validator.PDFMaxBytes {
			return nil, nil, c.JSON(http.StatusBadRequest,
				echo.Map{"error": "el archivo PDF no puede ser mayor a 10MB"})
		}
		f, err := fh.Open()
		if err != nil {
			c.Logger().Errorf("abrir PDF subido: %v", err)
			return nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
		}
		defer f.Close()
		pdf, err = io.ReadAll(f)
		if err != nil {
			c.Logger().Errorf("leer PDF subido: %v", err)
			return nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
		}
	}

	return &validator.Input{
		Nombre:      req.Nombre,
		Precio:      req.Precio,
		Descripcion: req.Descripcion,
		Stock:       req.Stock,
		NumeroOT:    req.NumeroOT,
		PDF:         pdf,
	}, pdf, nil
}

// nombreOcupado adapts the repository's uniqueness query to the validator's
// checker signature.
func (h *ProductoHandler) nombreOcupado(ctx context.Context) validator.NombreOcupado {
	return func(nombre string, excludeID uint64) (bool, error) {
		return h.Repo.ExistsActiveNombre(ctx, nombre, excludeID)
	}
}

func parseID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
