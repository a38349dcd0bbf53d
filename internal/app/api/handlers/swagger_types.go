package handlers

import (
	"github.com/quantprep/gatekeeper/internal/app/service/checkout"
	"github.com/quantprep/gatekeeper/pkg/response"
	"github.com/quantprep/gatekeeper/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespOrder wraps the checkout order handle in the standard envelope.
type RespOrder struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    checkout.OrderResult     `json:"data"`
}

// RespEntitlement wraps the entitlement view in the standard envelope.
type RespEntitlement struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    types.EntitlementInfo    `json:"data"`
}
