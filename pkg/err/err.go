package errprocess

import (
	"errors"
	"fmt"

	"transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// Set log err msg and return it as error
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap log msg with cause and return a wrapped error (errors.Is 可追溯 cause)
func Wrap(msg string, cause error) error {
	logger.Log.Error(msg, zap.Error(cause))
	return fmt.Errorf("%s: %w", msg, cause)
}
