// Package validator turns raw product payloads into validated field sets.
// Every check is independent and all applicable errors are collected, keyed
// by field name, so a single response can report several problems at once.
// The package has no side effects: the only state it consults is the
// uniqueness checker injected by the caller.
package validator

import (
	"bytes"
	"strings"
)

const (
	// PrecioMaximo is the inclusive upper bound for precio; DECIMAL(10,2)
	// holds it exactly.
	PrecioMaximo = 99999999.99
	// PDFMaxBytes bounds the orden de trabajo attachment at 10 MiB.
	PDFMaxBytes = 10 << 20
)

// pdfMagic is the signature every PDF must carry at offset 0.
var pdfMagic = []byte("%PDF")

// Errores collects validation messages keyed by field name.
type Errores map[string][]string

func (e Errores) add(campo, msg string) {
	e[campo] = append(e[campo], msg)
}

// Vacio reports whether no error was collected.
func (e Errores) Vacio() bool { return len(e) == 0 }

// Input is the raw field set of a create or update request. Pointer fields
// distinguish "absent" from a zero value so that partial updates only touch
// what the client sent. PDF carries the decoded attachment bytes, nil when
// the request had none.
type Input struct {
	Nombre      *string
	Precio      *float64
	Descripcion *string
	Stock       *int64
	NumeroOT    *int64
	PDF         []byte
}

// NombreOcupado reports whether an active product other than excludeID
// already uses the given name, compared case-insensitively. Pass excludeID 0
// on create.
type NombreOcupado func(nombre string, excludeID uint64) (bool, error)

// Validar checks in against the catalog's field rules and returns every
// violation found. When parcial is false (create, PUT) nombre and precio are
// required; when true (PATCH) only the provided fields are checked. A present
// Nombre is trimmed in place. The second return value reports an
// infrastructure failure of the uniqueness checker, never a validation
// problem.
func Validar(in *Input, parcial bool, excludeID uint64, ocupado NombreOcupado) (Errores, error) {
	errs := Errores{}

	if in.Nombre == nil {
		if !parcial {
			errs.add("nombre", "el nombre es requerido")
		}
	} else {
		*in.Nombre = strings.TrimSpace(*in.Nombre)
		if *in.Nombre == "" {
			errs.add("nombre", "el nombre no puede estar vacío")
		} else if ocupado != nil {
			dup, err := ocupado(*in.Nombre, excludeID)
			if err != nil {
				return nil, err
			}
			if dup {
				errs.add("nombre", "ya existe un producto con este nombre")
			}
		}
	}

	if in.Precio == nil {
		if !parcial {
			errs.add("precio", "el precio es requerido")
		}
	} else if *in.Precio <= 0 {
		errs.add("precio", "el precio debe ser mayor a 0")
	} else if *in.Precio > PrecioMaximo {
		errs.add("precio", "el precio no puede ser mayor a $99,999,999.99")
	}

	if in.Stock != nil && *in.Stock < 0 {
		errs.add("stock", "el stock no puede ser negativo")
	}

	if in.NumeroOT != nil && *in.NumeroOT <= 0 {
		errs.add("numero_ot", "el número de OT debe ser mayor a 0")
	}

	// Cross-field rule: a work order number without stock tracking makes no
	// sense, the error is reported against the missing field.
	if in.NumeroOT != nil && in.Stock == nil {
		errs.add("stock", "si se proporciona número de OT, también debe proporcionarse el stock")
	}

	for _, msg := range ValidarPDF(in.PDF) {
		errs.add("orden_trabajo_pdf", msg)
	}

	return errs, nil
}

// ValidarPDF checks an attachment blob on its own: bounded size and the %PDF
// signature at offset 0. A nil or empty blob is valid (the field is
// optional). It is exposed separately so the upload path can re-check the
// decoded bytes independently of the raw-length guard.
func ValidarPDF(pdf []byte) []string {
	if len(pdf) == 0 {
		return nil
	}
	var msgs []string
	if len(pdf) > PDFMaxBytes {
		msgs = append(msgs, "el archivo PDF no puede ser mayor a 10MB")
	}
	if !bytes.HasPrefix(pdf, pdfMagic) {
		msgs = append(msgs, "el archivo debe ser un PDF válido")
	}
	return msgs
}
