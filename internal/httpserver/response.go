package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c echo.Context, code int, msg string, data any) error {
	return c.JSON(code, Envelope{Status: "success", Message: msg, Data: data})
}

// ErrorHandler renders any handler error as an error envelope. Outside
// production the cause of a 5xx is appended to the message.
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := apperr.HTTPError(err)
		msg := fmt.Sprint(he.Message)
		if he.Code >= http.StatusInternalServerError {
			logging.FromContext(c.Request().Context()).Error("request_failed", "status", he.Code, "error", err)
			if !production && he.Internal != nil {
				msg = msg + ": " + he.Internal.Error()
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, Envelope{Status: "error", Message: msg})
		}
		if werr != nil {
			c.Logger().Error(werr)
		}
	}
}

func writeEnvelope(w http.ResponseWriter, code int, msg string) {
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Envelope{Status: "error", Message: msg})
}
