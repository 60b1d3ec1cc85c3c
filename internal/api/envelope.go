package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/refshelf/refshelf-server/internal/http/response"
)

// EnvelopeTransformer wraps every JSON body in the response envelope.
// Raw bodies such as BibTeX exports bypass transformers.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.WrapError(body.Code, body.Message, body.Details), nil
	case huma.StatusError:
		return response.WrapError(statusToCode(body.GetStatus()), body.Error(), nil), nil
	default:
		return response.Wrap(v), nil
	}
}
