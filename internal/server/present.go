package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"ecomreport/internal/config"
	"ecomreport/internal/model"
	"ecomreport/internal/util"
)

// 端口被占用时向后探测的范围
const portSearchLimit = 50

// Presenter 按配置展示交互视图
type Presenter struct {
	Mode string
	Port int

	// Open 打开浏览器，默认 util.OpenBrowserWithFallback
	Open func(url string) error
	// Ready 服务开始监听后回调（可选）
	Ready func(url string)
}

// NewPresenter 创建展示器
func NewPresenter(cfg config.ViewerConfig) *Presenter {
	return &Presenter{
		Mode: cfg.Mode,
		Port: cfg.Port,
		Open: util.OpenBrowserWithFallback,
	}
}

// Present 展示视图
//
// serve 模式阻塞到 ctx 取消；file（未设置时的默认）写出临时 HTML 后立即返回；none 什么都不做。
func (p *Presenter) Present(ctx context.Context, opts Options) error {
	switch p.Mode {
	case config.ViewerNone:
		return nil
	case config.ViewerFile, "":
		return p.presentFile(opts)
	case config.ViewerServe:
		return p.serve(ctx, opts)
	default:
		return model.ViewErr("unsupported viewer mode", nil, map[string]any{"mode": p.Mode})
	}
}

func (p *Presenter) presentFile(opts Options) error {
	if opts.View == nil {
		return model.ViewErr("no interactive view to present", nil, nil)
	}
	f, err := os.CreateTemp("", "reportgen-*.html")
	if err != nil {
		return model.ViewErr("failed to create view file", err, nil)
	}
	if _, err := opts.View.WriteTo(f); err != nil {
		f.Close()
		return model.ViewErr("failed to write view file", err, map[string]any{"path": f.Name()})
	}
	if err := f.Close(); err != nil {
		return model.ViewErr("failed to write view file", err, map[string]any{"path": f.Name()})
	}

	fmt.Printf("交互视图: %s\n", f.Name())
	p.open("file://" + f.Name())
	return nil
}

func (p *Presenter) serve(ctx context.Context, opts Options) error {
	port, err := util.FindAvailablePort(p.Port, portSearchLimit)
	if err != nil {
		return model.ViewErr("no port available for viewer", err, map[string]any{"port": p.Port})
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           New(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return model.ViewErr("failed to listen", err, map[string]any{"addr": srv.Addr})
	}
	url := fmt.Sprintf("http://127.0.0.1:%d", port)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("查看器已启动，监听端口 %d ...\n", port)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if p.Ready != nil {
		p.Ready(url)
	}
	p.open(url)

	select {
	case err, ok := <-errCh:
		if ok {
			return model.ViewErr("viewer stopped", err, map[string]any{"addr": srv.Addr})
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭查看器失败: %v", err)
	}
	return nil
}

func (p *Presenter) open(url string) {
	if p.Open == nil {
		return
	}
	fmt.Printf("正在打开浏览器: %s\n", url)
	if err := p.Open(url); err != nil {
		fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
	}
}
