package server

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"ecomreport/internal/interactive"
	"ecomreport/internal/pipeline"
)

// Options 本地查看器的数据来源
type Options struct {
	View         *interactive.Artifact
	ChartDir     string
	WorkbookPath string
	Summary      *pipeline.RunReport
}

// Server 运行结果查看器（只读）
type Server struct {
	router *gin.Engine
	opts   Options
}

// New 创建查看器
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		opts:   opts,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Handler 供 http.Server / httptest 使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	s.router.GET("/", s.index)
	s.router.GET("/charts/:file", s.chart)
	s.router.GET("/exports/workbook", s.download)

	api := s.router.Group("/api")
	{
		api.GET("/summary", s.summary)
	}
}

// index 交互视图页面
func (s *Server) index(c *gin.Context) {
	if s.opts.View == nil {
		c.String(http.StatusNotFound, "交互视图未生成")
		return
	}
	var buf bytes.Buffer
	if _, err := s.opts.View.WriteTo(&buf); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// chart 静态图：只允许图表目录下的直接文件
func (s *Server) chart(c *gin.Context) {
	name := c.Param("file")
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") || s.opts.ChartDir == "" {
		c.String(http.StatusNotFound, "文件不存在")
		return
	}
	path := filepath.Join(s.opts.ChartDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "文件不存在")
		return
	}
	c.File(path)
}

// download 下载工作簿
func (s *Server) download(c *gin.Context) {
	path := s.opts.WorkbookPath
	if path == "" {
		c.String(http.StatusNotFound, "文件不存在或未生成")
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, "文件不存在或未生成")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(path))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(path)
}

// summary 本次运行汇总
func (s *Server) summary(c *gin.Context) {
	if s.opts.Summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no run summary"})
		return
	}
	c.JSON(http.StatusOK, s.opts.Summary)
}
