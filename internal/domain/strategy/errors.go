package strategy

import "errors"

// ErrUnknownCar reports a car with no rows in the lap table.
var ErrUnknownCar = errors.New("unknown car")
