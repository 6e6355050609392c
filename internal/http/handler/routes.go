package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/edirooss/livesrc/internal/http/middleware"
)

// Register mounts every endpoint under api. probeLimit caps concurrent
// requests that hold a connection open while probing.
func Register(api gin.IRouter, live *LiveHandler, tasks *TasksHandler, probeLimit int) {
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tv := api.Group("/tv")
	{
		tv.POST("/clear", live.Clear)
		tv.POST("/single", mw.LimitConcurrentRequests("single", probeLimit), live.Single)
		tv.POST("/batch", live.Batch)
		tv.POST("/update/txt", mw.LimitConcurrentRequests("update", probeLimit), live.UpdateTxt)
		tv.POST("/update/m3u", live.UpdateM3U)
		tv.POST("/chr/txt", live.CheckPosted)

		tv.GET("/show/txt", live.ShowTxt)
		tv.GET("/show/m3u", live.ShowM3U)

		tv.POST("/cvt/txt", live.ConvertTxt)
		tv.POST("/cvt/m3u", live.ConvertM3U)
		tv.POST("/sort/txt", live.SortTxt)
		tv.POST("/sort/m3u", live.SortM3U)
		tv.POST("/mgr/txt", live.Merge)
	}

	api.GET("/tasks", tasks.GetTaskList)
	api.GET("/tasks/:id", tasks.GetTask)
	api.GET("/tasks/:id/logs", tasks.GetTaskLogs)
}
