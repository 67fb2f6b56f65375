package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taller-ot/productos-api/internal/repository"
)

func newProductoHandler(t *testing.T) (*ProductoHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProductoHandler(repository.NewProductoRepo(db)), mock
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestCreateCamposRequeridos(t *testing.T) {
	h, mock := newProductoHandler(t)

	c, rec := jsonCtx(http.MethodPost, "/productos/", `{}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "datos inválidos", body["error"])
	detalles := body["detalles"].(map[string]any)
	assert.Contains(t, detalles, "nombre")
	assert.Contains(t, detalles, "precio")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	h, mock := newProductoHandler(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT EXISTS").WithArgs("Widget", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM productos").WithArgs("Widget", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO productos").
		WithArgs("Widget", 1234.5, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT fecha_creacion, fecha_actualizacion, activo FROM productos").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"fecha_creacion", "fecha_actualizacion", "activo"}).
			AddRow(now, now, true))
	mock.ExpectCommit()

	c, rec := jsonCtx(http.MethodPost, "/productos/", `{"nombre":"Widget","precio":1234.5}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Widget", body["nombre"])
	assert.Equal(t, "$1,234.50", body["precio_formateado"])
	assert.Equal(t, false, body["tiene_pdf"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNombreDuplicado(t *testing.T) {
	h, mock := newProductoHandler(t)

	// The validator's pre-check finds an active product with the same name, so
	// no transaction is even opened.
	mock.ExpectQuery("SELECT EXISTS").WithArgs("Widget", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	c, rec := jsonCtx(http.MethodPost, "/productos/", `{"nombre":"Widget","precio":1}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	detalles := decodeBody(t, rec)["detalles"].(map[string]any)
	nombre := detalles["nombre"].([]any)
	assert.Equal(t, "ya existe un producto con este nombre", nombre[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMultipartConPDF(t *testing.T) {
	h, mock := newProductoHandler(t)
	now := time.Now().UTC()
	pdf := []byte("%PDF-1.4 prueba")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("nombre", "Widget"))
	require.NoError(t, w.WriteField("precio", "9.99"))
	fw, err := w.CreateFormFile(pdfFormField, "ot.pdf")
	require.NoError(t, err)
	_, err = fw.Write(pdf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	mock.ExpectQuery("SELECT EXISTS").WithArgs("Widget", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM productos").WithArgs("Widget", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO productos").
		WithArgs("Widget", 9.99, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec("UPDATE productos SET orden_trabajo_pdf = \\?").
		WithArgs(pdf, uint64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT fecha_creacion, fecha_actualizacion, activo FROM productos").
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"fecha_creacion", "fecha_actualizacion", "activo"}).
			AddRow(now, now, true))
	mock.ExpectCommit()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/productos/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	require.NoError(t, h.Create(e.NewContext(req, rec)))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["tiene_pdf"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMultipartPDFSinFirma(t *testing.T) {
	h, mock := newProductoHandler(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("nombre", "Widget"))
	require.NoError(t, w.WriteField("precio", "9.99"))
	fw, err := w.CreateFormFile(pdfFormField, "ot.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("esto no es un pdf"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	mock.ExpectQuery("SELECT EXISTS").WithArgs("Widget", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/productos/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	require.NoError(t, h.Create(e.NewContext(req, rec)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	detalles := decodeBody(t, rec)["detalles"].(map[string]any)
	msgs := detalles["orden_trabajo_pdf"].([]any)
	assert.Equal(t, "el archivo debe ser un PDF válido", msgs[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNoEncontrado(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectQuery("FROM productos WHERE id = \\? AND activo = 1").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := jsonCtx(http.MethodGet, "/productos/9/", "")
	require.NoError(t, h.Get(withID(c, "9")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "producto no encontrado", decodeBody(t, rec)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIDInvalido(t *testing.T) {
	h, _ := newProductoHandler(t)

	c, rec := jsonCtx(http.MethodGet, "/productos/abc/", "")
	require.NoError(t, h.Get(withID(c, "abc")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id inválido", decodeBody(t, rec)["error"])
}

func TestDelete(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectExec("UPDATE productos SET activo = 0").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := jsonCtx(http.MethodDelete, "/productos/3/", "")
	require.NoError(t, h.Delete(withID(c, "3")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNoEncontrado(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectExec("UPDATE productos SET activo = 0").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := jsonCtx(http.MethodDelete, "/productos/3/", "")
	require.NoError(t, h.Delete(withID(c, "3")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReducirStockCantidadInvalida(t *testing.T) {
	h, _ := newProductoHandler(t)

	for _, body := range []string{`{}`, `{"cantidad":0}`, `{"cantidad":-3}`} {
		c, rec := jsonCtx(http.MethodPost, "/productos/1/reducir-stock/", body)
		require.NoError(t, h.ReducirStock(withID(c, "1")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "la cantidad debe ser mayor a 0", decodeBody(t, rec)["error"])
	}
}

func TestReducirStockInsuficiente(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM productos").WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
	mock.ExpectRollback()

	c, rec := jsonCtx(http.MethodPost, "/productos/1/reducir-stock/", `{"cantidad":5}`)
	require.NoError(t, h.ReducirStock(withID(c, "1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no hay suficiente stock disponible", decodeBody(t, rec)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAumentarStock(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM productos").WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(2))
	mock.ExpectExec("UPDATE productos SET stock = \\?").
		WithArgs(int64(5), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := jsonCtx(http.MethodPost, "/productos/1/aumentar-stock/", `{"cantidad":3}`)
	require.NoError(t, h.AumentarStock(withID(c, "1")))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Stock aumentado exitosamente. Stock actual: 5", body["mensaje"])
	assert.Equal(t, float64(5), body["stock_actual"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescargarOT(t *testing.T) {
	h, mock := newProductoHandler(t)
	pdf := []byte("%PDF-1.4 contenido")

	mock.ExpectQuery("SELECT nombre, orden_trabajo_pdf FROM productos").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"nombre", "orden_trabajo_pdf"}).AddRow("Widget", pdf))

	c, rec := jsonCtx(http.MethodGet, "/productos/4/descargar-ot/", "")
	require.NoError(t, h.DescargarOT(withID(c, "4")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="orden_trabajo_4_Widget.pdf"`,
		rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, pdf, rec.Body.Bytes())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescargarOTNombreConEspaciosYComillas(t *testing.T) {
	h, mock := newProductoHandler(t)
	pdf := []byte("%PDF-1.4 contenido")

	mock.ExpectQuery("SELECT nombre, orden_trabajo_pdf FROM productos").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"nombre", "orden_trabajo_pdf"}).
			AddRow(`Filtro "HEPA" 3M`, pdf))

	c, rec := jsonCtx(http.MethodGet, "/productos/4/descargar-ot/", "")
	require.NoError(t, h.DescargarOT(withID(c, "4")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="orden_trabajo_4_Filtro HEPA 3M.pdf"`,
		rec.Header().Get(echo.HeaderContentDisposition))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescargarOTSinPDF(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectQuery("SELECT nombre, orden_trabajo_pdf FROM productos").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"nombre", "orden_trabajo_pdf"}).AddRow("Widget", nil))

	c, rec := jsonCtx(http.MethodGet, "/productos/4/descargar-ot/", "")
	require.NoError(t, h.DescargarOT(withID(c, "4")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no hay PDF cargado para este producto", decodeBody(t, rec)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltrosInvalidos(t *testing.T) {
	h, _ := newProductoHandler(t)

	c, rec := jsonCtx(http.MethodGet, "/productos/?precio_min=abc", "")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "precio_min inválido", decodeBody(t, rec)["error"])
}

func TestEstadisticasHandler(t *testing.T) {
	h, mock := newProductoHandler(t)

	mock.ExpectQuery("FROM productos WHERE activo = 1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "con_stock", "con_pdf", "promedio"}).
			AddRow(3, 2, 1, 25.5))

	c, rec := jsonCtx(http.MethodGet, "/productos/estadisticas/", "")
	require.NoError(t, h.Estadisticas(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var e map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&e))
	assert.Equal(t, json.Number("3"), e["total_productos"])
	assert.Equal(t, json.Number("2"), e["productos_con_stock"])
	assert.Equal(t, json.Number("1"), e["productos_con_pdf"])
	require.NoError(t, mock.ExpectationsWereMet())
}
