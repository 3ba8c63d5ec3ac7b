package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/value"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpError maps the engine error taxonomy onto status codes.
func httpError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	code := common.KindInternal
	var engineErr *common.Error
	if errors.As(err, &engineErr) {
		code = engineErr.Kind
		switch engineErr.Kind {
		case common.KindNotFound:
			status = http.StatusNotFound
		case common.KindInvalidParameter:
			status = http.StatusBadRequest
		case common.KindPermissionDenied:
			status = http.StatusForbidden
		case common.KindQueryExecutionFailed, common.KindTransactionFailed, common.KindSchemaOperationFailed:
			status = http.StatusUnprocessableEntity
		}
	}
	return c.JSON(status, errorBody{Code: code.String(), Message: err.Error()})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return httpError(c, common.WrapError(common.KindInvalidParameter, "malformed login body", err))
	}
	sessionID, err := s.service.Authenticate(req.Username, req.Password)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, loginResponse{SessionID: sessionID})
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return httpError(c, common.WrapError(common.KindInvalidParameter, "malformed logout body", err))
	}
	if err := s.service.Signout(req.SessionID); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type queryRequest struct {
	SessionID  string                 `json:"session_id"`
	Statement  string                 `json:"statement"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type queryResponse struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	ElapsedMs int64           `json:"elapsed_ms"`
}

func (s *Server) query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return httpError(c, common.WrapError(common.KindInvalidParameter, "malformed query body", err))
	}
	params := make(map[string]value.Value, len(req.Parameters))
	for name, raw := range req.Parameters {
		params[name] = valueFromJSON(raw)
	}
	result, err := s.service.ExecuteWithParams(req.SessionID, req.Statement, params)
	if err != nil {
		return httpError(c, err)
	}
	resp := queryResponse{Columns: result.Columns(), ElapsedMs: result.Elapsed.Milliseconds()}
	for _, row := range result.Rows() {
		out := make([]interface{}, len(row))
		for i, cell := range row {
			out[i] = cell.String()
		}
		resp.Rows = append(resp.Rows, out)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.ListSessions())
}

func (s *Server) getSession(c echo.Context) error {
	info, err := s.service.GetSessionInfo(c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) killSession(c echo.Context) error {
	user := c.QueryParam("user")
	if err := s.service.KillSession(c.Param("id"), user); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) killQuery(c echo.Context) error {
	if err := s.service.KillQuery(c.Param("id"), c.Param("qid")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func valueFromJSON(raw interface{}) value.Value {
	switch typed := raw.(type) {
	case nil:
		return value.Null
	case bool:
		return value.NewBool(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return value.NewInt(int64(typed))
		}
		return value.NewFloat(typed)
	case string:
		return value.NewString(typed)
	case []interface{}:
		items := make([]value.Value, len(typed))
		for i, item := range typed {
			items[i] = valueFromJSON(item)
		}
		return value.NewList(items)
	case map[string]interface{}:
		m := make(map[string]value.Value, len(typed))
		for k, item := range typed {
			m[k] = valueFromJSON(item)
		}
		return value.NewMap(m)
	}
	return value.Null
}
