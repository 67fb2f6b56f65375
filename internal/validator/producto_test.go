package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string   { return &s }
func f64(f float64) *float64 { return &f }
func i64(i int64) *int64     { return &i }

// nadieOcupado is a uniqueness checker that never finds a duplicate.
func nadieOcupado(string, uint64) (bool, error) { return false, nil }

func TestValidarCamposRequeridos(t *testing.T) {
	errs, err := Validar(&Input{}, false, 0, nadieOcupado)
	require.NoError(t, err)
	assert.Contains(t, errs, "nombre")
	assert.Contains(t, errs, "precio")
}

func TestValidarParcialSinCampos(t *testing.T) {
	errs, err := Validar(&Input{}, true, 0, nadieOcupado)
	require.NoError(t, err)
	assert.True(t, errs.Vacio())
}

func TestValidarNombre(t *testing.T) {
	t.Run("vacío tras recortar espacios", func(t *testing.T) {
		errs, err := Validar(&Input{Nombre: str("   "), Precio: f64(1)}, false, 0, nadieOcupado)
		require.NoError(t, err)
		assert.Contains(t, errs, "nombre")
	})
	t.Run("normaliza espacios", func(t *testing.T) {
		in := &Input{Nombre: str("  Widget  "), Precio: f64(1)}
		errs, err := Validar(in, false, 0, nadieOcupado)
		require.NoError(t, err)
		assert.True(t, errs.Vacio())
		assert.Equal(t, "Widget", *in.Nombre)
	})
	t.Run("duplicado activo", func(t *testing.T) {
		ocupado := func(nombre string, excludeID uint64) (bool, error) {
			return nombre == "Widget", nil
		}
		errs, err := Validar(&Input{Nombre: str("Widget"), Precio: f64(1)}, false, 0, ocupado)
		require.NoError(t, err)
		assert.Equal(t, []string{"ya existe un producto con este nombre"}, errs["nombre"])
	})
}

func TestValidarPrecioLimites(t *testing.T) {
	cases := []struct {
		nombre string
		precio float64
		valido bool
	}{
		{"cero", 0, false},
		{"negativo", -1, false},
		{"mínimo válido", 0.01, true},
		{"límite superior", 99999999.99, true},
		{"sobre el límite", 100000000.00, false},
	}
	for _, tc := range cases {
		t.Run(tc.nombre, func(t *testing.T) {
			errs, err := Validar(&Input{Nombre: str("X"), Precio: f64(tc.precio)}, false, 0, nadieOcupado)
			require.NoError(t, err)
			if tc.valido {
				assert.NotContains(t, errs, "precio")
			} else {
				assert.Contains(t, errs, "precio")
			}
		})
	}
}

func TestValidarStockNegativo(t *testing.T) {
	errs, err := Validar(&Input{Nombre: str("X"), Precio: f64(1), Stock: i64(-1)}, false, 0, nadieOcupado)
	require.NoError(t, err)
	assert.Contains(t, errs, "stock")
}

func TestValidarNumeroOT(t *testing.T) {
	errs, err := Validar(&Input{Nombre: str("X"), Precio: f64(1), NumeroOT: i64(0), Stock: i64(1)}, false, 0, nadieOcupado)
	require.NoError(t, err)
	assert.Contains(t, errs, "numero_ot")
}

func TestValidarCruzadoOTSinStock(t *testing.T) {
	// El número de OT exige stock; el error se reporta sobre el campo ausente.
	errs, err := Validar(&Input{Nombre: str("X"), Precio: f64(1), NumeroOT: i64(7)}, false, 0, nadieOcupado)
	require.NoError(t, err)
	assert.Contains(t, errs, "stock")
	assert.NotContains(t, errs, "numero_ot")
}

func TestValidarPDF(t *testing.T) {
	t.Run("sin firma", func(t *testing.T) {
		msgs := ValidarPDF([]byte("no es un pdf"))
		require.Len(t, msgs, 1)
		assert.Equal(t, "el archivo debe ser un PDF válido", msgs[0])
	})
	t.Run("exactamente 10MiB con firma válida", func(t *testing.T) {
		blob := make([]byte, PDFMaxBytes)
		copy(blob, "%PDF")
		assert.Empty(t, ValidarPDF(blob))
	})
	t.Run("10MiB más un byte", func(t *testing.T) {
		blob := make([]byte, PDFMaxBytes+1)
		copy(blob, "%PDF")
		msgs := ValidarPDF(blob)
		require.Len(t, msgs, 1)
		assert.Equal(t, "el archivo PDF no puede ser mayor a 10MB", msgs[0])
	})
	t.Run("ausente es válido", func(t *testing.T) {
		assert.Empty(t, ValidarPDF(nil))
	})
}

func TestValidarAcumulaErroresIndependientes(t *testing.T) {
	in := &Input{
		Nombre:   str(""),
		Precio:   f64(-5),
		Stock:    i64(-2),
		NumeroOT: i64(0),
		PDF:      []byte("basura"),
	}
	errs, err := Validar(in, false, 0, nadieOcupado)
	require.NoError(t, err)
	for _, campo := range []string{"nombre", "precio", "stock", "numero_ot", "orden_trabajo_pdf"} {
		assert.Contains(t, errs, campo)
	}
}
