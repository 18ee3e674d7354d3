package i18n

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondWithError writes {"error": msg}. Errors that are not *ErrorWithCode
// become a generic 500 so internal detail never reaches the caller.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var coded *ErrorWithCode
	if !errors.As(err, &coded) {
		coded = ErrInternalServer
	}

	msg := GetTranslator().Translate(coded.MessageID, contextLang(c), coded.Data)
	c.AbortWithStatusJSON(int(coded.Code), gin.H{"error": msg})
}

// RespondWithSuccess writes {"message": msg, "data": payload}.
func RespondWithSuccess(c *gin.Context, statusCode int, msgID string, payload any) {
	response := gin.H{"message": TranslateMessage(c, msgID, nil)}
	if payload != nil {
		response["data"] = payload
	}
	c.JSON(statusCode, response)
}

// SuccessResponse is a fluent builder around RespondWithSuccess.
type SuccessResponse struct {
	StatusCode int
	MsgID      string
	Payload    any
}

// WithPayload sets the payload for the response
func (r *SuccessResponse) WithPayload(payload any) *SuccessResponse {
	r.Payload = payload
	return r
}

// Send sends the response to the client
func (r *SuccessResponse) Send(c *gin.Context) {
	RespondWithSuccess(c, r.StatusCode, r.MsgID, r.Payload)
}

// Success creates a new success response with status code 200
func Success(msgID string) *SuccessResponse {
	return &SuccessResponse{StatusCode: http.StatusOK, MsgID: msgID}
}

// Created creates a new success response with status code 201
func Created(msgID string) *SuccessResponse {
	return &SuccessResponse{StatusCode: http.StatusCreated, MsgID: msgID}
}
