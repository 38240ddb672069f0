package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	consoleRequestTimeLayout   = "02/Jan/2006 15:04:05"
	logFieldMethod             = "method"
	logFieldPath               = "path"
	logFieldRemote             = "remote"
	logFieldDuration           = "duration"
	logFieldStatus             = "status"
	logMessageRequestCompleted = "request completed"
)

func wrapWithLogging(loggingService *logging.Service, handler http.Handler) http.Handler {
	if loggingService == nil {
		return handler
	}
	if loggingService.Type() == logging.TypeConsole {
		return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			recordedWriter := newStatusRecorder(responseWriter)
			startTime := time.Now()
			handler.ServeHTTP(recordedWriter, request)
			loggingService.Info(formatConsoleRequestLog(request, recordedWriter.statusCode, recordedWriter.bytesWritten, startTime))
		})
	}
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recordedWriter := newStatusRecorder(responseWriter)
		startTime := time.Now()
		handler.ServeHTTP(recordedWriter, request)
		loggingService.Info(
			logMessageRequestCompleted,
			logging.String(logFieldMethod, request.Method),
			logging.String(logFieldPath, request.URL.Path),
			logging.Int(logFieldStatus, recordedWriter.statusCode),
			logging.Duration(logFieldDuration, time.Since(startTime)),
			logging.String(logFieldRemote, request.RemoteAddr),
		)
	})
}

func formatConsoleRequestLog(request *http.Request, statusCode int, bytesWritten int, startTime time.Time) string {
	clientAddress := request.RemoteAddr
	if host, _, err := net.SplitHostPort(clientAddress); err == nil {
		clientAddress = host
	}
	requestTarget := request.URL.RequestURI()
	if requestTarget == "" {
		requestTarget = request.URL.Path
	}
	sizeField := "-"
	if bytesWritten > 0 {
		sizeField = strconv.Itoa(bytesWritten)
	}
	return fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %s", clientAddress, startTime.Format(consoleRequestTimeLayout), request.Method, requestTarget, request.Proto, statusCode, sizeField)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func newStatusRecorder(responseWriter http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: responseWriter, statusCode: http.StatusOK}
}

func (recorder *statusRecorder) WriteHeader(statusCode int) {
	recorder.statusCode = statusCode
	recorder.ResponseWriter.WriteHeader(statusCode)
}

func (recorder *statusRecorder) Write(content []byte) (int, error) {
	written, err := recorder.ResponseWriter.Write(content)
	recorder.bytesWritten += written
	return written, err
}
