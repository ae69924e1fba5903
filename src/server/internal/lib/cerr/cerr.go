package cerr

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// F is a shorthand for a bag of error context fields.
type F map[string]any

// Ctx accumulates fields and a wrapped error before committing them
// into a single error value. Usage:
//
//	cerr.Field("session_id", id).Wrap(err).Error("Failed to resolve session")
type Ctx struct {
	fields  F
	wrapped error
}

func Field(key string, value any) Ctx {
	return Ctx{}.Field(key, value)
}

func Fields(fields F) Ctx {
	ctx := Ctx{}
	for k, v := range fields {
		ctx = ctx.Field(k, v)
	}
	return ctx
}

func Wrap(err error) Ctx {
	return Ctx{}.Wrap(err)
}

func Error(msg string) error {
	return Ctx{}.Error(msg)
}

func (c Ctx) Field(key string, value any) Ctx {
	newFields := F{}
	for k, v := range c.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return Ctx{
		fields:  newFields,
		wrapped: c.wrapped,
	}
}

func (c Ctx) Wrap(err error) Ctx {
	return Ctx{
		fields:  c.fields,
		wrapped: err,
	}
}

func (c Ctx) Error(msg string) error {
	var err error
	if c.wrapped != nil {
		err = errors.Wrap(c.wrapped, msg)
	} else {
		err = errors.New(msg)
	}

	for k, v := range c.fields {
		err = errors.WithDetail(err, fmt.Sprintf("%s: %+v", k, v))
	}

	return err
}

// Log writes the error and all its accumulated detail fields.
func Log(err error) {
	if err == nil {
		return
	}

	details := errors.GetAllDetails(err)

	logger := log.Log
	if len(details) > 0 {
		logger = log.WithField("details", strings.Join(details, "\n"))
	}

	logger.Error(err.Error())
}
