package gymcompat

import "errors"

var (
	ErrInvalidSpace           = errors.New("invalid space")
	ErrInvalidAction          = errors.New("action is not part of the action space")
	ErrUnknownActionAttribute = errors.New("unknown action attribute")
	ErrAttributeNotKept       = errors.New("attribute is not part of the space")
	ErrInfiniteBounds         = errors.New("attribute has infinite bounds")
	ErrInvalidTransform       = errors.New("invalid divide or subtract")
)
