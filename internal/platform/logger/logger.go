package logger

import "go.uber.org/zap"

// New builds the process logger: JSON in production, console otherwise.
func New(env string) *zap.Logger {
	if env == "production" {
		l, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return l
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l
}
