package routes

import (
	"net/http"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/cluster"
	"github.com/casegraph/backend/pkg/network"

	"github.com/labstack/echo/v4"
)

type clusterGroup struct {
	Label int     `json:"label"`
	Cases []int64 `json:"cases"`
}

type clusterResponse struct {
	Method   cluster.Method `json:"method"`
	Clusters []clusterGroup `json:"clusters"`
	Cases    []int64        `json:"cases"`
	Labels   []int          `json:"labels"`
}

// ClusterCasesHandler partitions a set of opinions by citation similarity.
func ClusterCasesHandler(c echo.Context) error {
	type clusterBody struct {
		Cases       []int64 `json:"cases"`
		Method      string  `json:"method" validate:"omitempty,oneof=dbscan spectral"`
		Eps         float64 `json:"eps" validate:"omitempty,gt=0"`
		NumClusters int     `json:"num_clusters" validate:"omitempty,min=0"`
	}

	data := new(clusterBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if len(data.Cases) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": errNoCaseIDs})
	}

	method := cluster.MethodDBSCAN
	if data.Method != "" {
		m, err := cluster.ParseMethod(data.Method)
		if err != nil {
			return errorResponse(c, err)
		}
		method = m
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if app.ClusterSem != nil {
		if err := app.ClusterSem.Acquire(ctx, 1); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Request cancelled"})
		}
		defer app.ClusterSem.Release(1)
	}

	res, err := app.Service.Cluster(ctx, data.Cases, network.ClusterRequest{
		Method:      method,
		Eps:         data.Eps,
		NumClusters: data.NumClusters,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	out := clusterResponse{
		Method:   method,
		Clusters: make([]clusterGroup, 0, len(res.Groups)),
		Cases:    res.IDs,
		Labels:   res.Labels,
	}
	for _, label := range res.SortedLabels() {
		out.Clusters = append(out.Clusters, clusterGroup{Label: label, Cases: res.Groups[label]})
	}
	return c.JSON(http.StatusOK, out)
}
