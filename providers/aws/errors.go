package aws

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/retag-io/retag/internal/provider"
)

// classify wraps an SDK error into the typed provider taxonomy based on
// the smithy API error code. Unrecognized and non-API errors come back
// as KindOther; the engine's transient matcher still gets a shot at
// those via the wrapped message.
func classify(op, resourceID string, err error) error {
	kind := provider.KindOther

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			kind = provider.KindPermissionDenied
		case "ResourceNotFound", "ResourceNotFoundException", "NoSuchBucket", "NotFound":
			kind = provider.KindNotFound
		case "UnsupportedOperation", "MethodNotAllowed", "NotImplemented":
			kind = provider.KindUnsupported
		case "Throttling", "ThrottlingException", "TooManyRequestsException",
			"RequestLimitExceeded", "RequestThrottled", "SlowDown":
			kind = provider.KindThrottled
		case "ServiceUnavailable", "InternalError", "InternalFailure", "RequestTimeout":
			kind = provider.KindTransient
		}
	}

	return provider.NewError(kind, op, resourceID, err)
}
