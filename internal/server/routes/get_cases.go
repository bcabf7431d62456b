package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/common"

	"github.com/labstack/echo/v4"
)

const errNoCaseIDs = "You must provide at least one case ID."

// GetCaseHandler returns a single opinion.
func GetCaseHandler(c echo.Context) error {
	type getCaseParams struct {
		ID int64 `param:"id" validate:"required"`
	}

	data := new(getCaseParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	opinions := c.(*middleware.AppContext).App.Opinions
	opinion, err := opinions.GetOpinion(c.Request().Context(), data.ID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, caseResponse(opinion))
}

// GetSimilarCasesHandler returns the opinions most similar to the given group.
// Case IDs may be repeated (?cases=1&cases=2) or comma separated.
func GetSimilarCasesHandler(c echo.Context) error {
	ids, err := parseCaseIDs(c.QueryParams()["cases"])
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": errNoCaseIDs})
	}

	limit := 0
	if raw := c.QueryParam("max_cases"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "max_cases must be a non-negative integer"})
		}
	}

	service := c.(*middleware.AppContext).App.Service
	opinions, err := service.SimilarToGroup(c.Request().Context(), ids, limit)
	if err != nil {
		return errorResponse(c, err)
	}

	res := make([]caseBody, 0, len(opinions))
	for _, o := range opinions {
		res = append(res, caseResponse(o))
	}
	return c.JSON(http.StatusOK, res)
}

type caseBody struct {
	common.Opinion
	Citation string `json:"citation,omitempty"`
}

func caseResponse(o common.Opinion) caseBody {
	return caseBody{Opinion: o, Citation: o.ReporterCitation()}
}

func parseCaseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid case ID %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
