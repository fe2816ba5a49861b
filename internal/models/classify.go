package models

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"github.com/easeaico/memorify/internal/apperr"
)

// Classify 将提供方返回的错误映射为 apperr.Kind。
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var kinded *apperr.Error
	if errors.As(err, &kinded) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.E(apperr.KindTimeout, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.E(apperr.KindInternal, op, err)
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return apperr.E(kindForStatus(oaErr.StatusCode), op, err)
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return apperr.E(kindForStatus(gErr.Code), op, err)
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil {
		return apperr.E(kindForStatus(gErrPtr.Code), op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperr.E(apperr.KindTimeout, op, err)
		}
		return apperr.E(apperr.KindNetwork, op, err)
	}
	return apperr.E(apperr.KindInternal, op, err)
}

func kindForStatus(status int) apperr.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.KindQuota
	case status == http.StatusUnauthorized:
		return apperr.KindAuth
	case status == http.StatusForbidden:
		return apperr.KindForbidden
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperr.KindTimeout
	case status >= 500:
		return apperr.KindServer
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperr.KindValidation
	case status == http.StatusNotFound:
		return apperr.KindNotFound
	default:
		return apperr.KindInternal
	}
}
