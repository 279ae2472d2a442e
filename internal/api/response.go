package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillbridge/internal/errcode"
)

// envelope is the uniform success body: {status, message?, data?, total?}.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Total   *int64 `json:"total,omitempty"`
}

// OK answers 200 with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Data: data})
}

// OKMessage answers 200 with a message and optional data.
func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Message: message, Data: data})
}

// OKList answers 200 with data plus the record count.
func OKList(c *gin.Context, data any, total int64) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Data: data, Total: &total})
}

// Created answers 201 with a message and the created record.
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, envelope{Status: http.StatusCreated, Message: message, Data: data})
}

// Fail answers with the status mapped from kind and a bare {message} body.
func Fail(c *gin.Context, kind errcode.Kind, msg string) {
	c.JSON(kind.Status(), gin.H{"message": msg})
}

func BadRequest(c *gin.Context, msg string) { Fail(c, errcode.Validation, msg) }
func Unauthorized(c *gin.Context)           { Fail(c, errcode.Unauthenticated, "unauthorized") }
func Forbidden(c *gin.Context, msg string)  { Fail(c, errcode.Forbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Fail(c, errcode.NotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Fail(c, errcode.Conflict, msg) }
func Internal(c *gin.Context, msg string)   { Fail(c, errcode.Internal, msg) }

// AbortUnauthorized is for middleware-style rejection inside handlers.
func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
}
