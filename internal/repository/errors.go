// Package repository contains the data access layer, separated from HTTP
// handlers. The sentinel errors below let handlers map persistence outcomes
// to HTTP statuses without string matching.
package repository

import "errors"

// ErrProductoNotFound is returned when no active product matches the given
// id. Soft-deleted rows stay in the table but are invisible to every
// operation, so acting on one surfaces as not-found.
var ErrProductoNotFound = errors.New("producto no encontrado")

// ErrNombreDuplicado signals that another active product already uses the
// name (case-insensitive). Handlers surface it as a validation error on the
// nombre field.
var ErrNombreDuplicado = errors.New("ya existe un producto con este nombre")

// ErrSinStock is returned when a stock decrease targets a product that has
// no stock tracking configured (stock column is NULL).
var ErrSinStock = errors.New("este producto no tiene stock configurado")

// ErrStockInsuficiente is returned when a decrease exceeds the current stock.
// The row is left untouched.
var ErrStockInsuficiente = errors.New("no hay suficiente stock disponible")

// ErrSinPDF is returned by the download path when the product exists but no
// attachment was ever stored.
var ErrSinPDF = errors.New("no hay PDF cargado para este producto")

// ErrUsernameExists and ErrEmailExists signal registration conflicts.
var (
	ErrUsernameExists = errors.New("el usuario ya existe")
	ErrEmailExists    = errors.New("el email ya está registrado")
)
