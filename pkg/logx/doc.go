// Package logx is a thin structured-logging layer over zerolog.
//
// It exists so the rest of the codebase can log through a small, stable API
// (Field helpers + leveled methods) without importing zerolog everywhere.
// The zero value is a safe no-op logger.
package logx
