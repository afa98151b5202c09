// Package browser 启动带远程调试端口的本地 Chrome，供 watch --launch 使用
package browser

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"tddebugger/internal/config"
	"tddebugger/internal/logger"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"

	"github.com/mafredri/cdp/devtool"
)

// DefaultPort 默认远程调试端口
const DefaultPort = 9222

// Options 浏览器启动选项
type Options struct {
	ExecPath string // 为空时自动查找
	// ProfileDir 用户数据目录，为空时使用应用数据目录下的 chrome-profile
	ProfileDir string
	Port       int    // 0 表示 9222，被占用时随机选择
	Headless   bool
	StartURL   string // 启动后打开的页面
}

// Browser 已启动的浏览器进程
type Browser struct {
	cmd         *exec.Cmd
	log         logger.Logger
	DevToolsURL string
}

// Start 启动浏览器并等待 DevTools 服务就绪
func Start(ctx context.Context, opts Options, l logger.Logger) (*Browser, error) {
	if l == nil {
		l = logger.NewNop()
	}
	exe := opts.ExecPath
	if exe == "" {
		exe = findChrome()
	}
	if exe == "" {
		return nil, errx.New(errx.CodeTargetAttach, "未找到 Chrome 可执行文件")
	}

	port, err := pickPort(opts.Port)
	if err != nil {
		return nil, errx.Wrap(errx.CodeTargetAttach, err, "无可用端口")
	}
	if opts.ProfileDir == "" {
		dir, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		opts.ProfileDir = filepath.Join(dir, "chrome-profile")
	}
	if err := os.MkdirAll(opts.ProfileDir, 0o755); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, exe, launchArgs(port, opts)...)
	if err := cmd.Start(); err != nil {
		return nil, errx.Wrap(errx.CodeTargetAttach, err, "启动浏览器失败")
	}

	b := &Browser{cmd: cmd, log: l, DevToolsURL: fmt.Sprintf("http://127.0.0.1:%d", port)}
	l.Info("浏览器已启动", "exe", exe, "devtools", b.DevToolsURL, "pid", cmd.Process.Pid)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := WaitReady(waitCtx, b.DevToolsURL); err != nil {
		_ = b.Stop(2 * time.Second)
		return nil, err
	}
	return b, nil
}

// Stop 结束浏览器进程
func (b *Browser) Stop(timeout time.Duration) error {
	if b == nil || b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()
	_ = b.cmd.Process.Kill()
	select {
	case <-time.After(timeout):
		return errx.New(errx.CodeTargetAttach, "浏览器退出超时")
	case err := <-done:
		b.log.Info("浏览器已退出")
		return err
	}
}

// WaitReady 轮询 DevTools 版本接口直到可用
func WaitReady(ctx context.Context, devtoolsURL string) error {
	dt := devtool.New(devtoolsURL)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := dt.Version(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errx.Wrap(errx.CodeTargetAttach, domain.ErrDevToolsUnreachable, devtoolsURL)
		case <-ticker.C:
		}
	}
}

func findChrome() string {
	for _, p := range chromePaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, name := range []string{"google-chrome", "chrome", "chromium", "chromium-browser"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func chromePaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "Application", "chrome.exe"),
		}
	case "darwin":
		return []string{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"}
	case "linux":
		return []string{"/usr/bin/google-chrome", "/usr/bin/google-chrome-stable", "/usr/bin/chromium", "/snap/bin/chromium"}
	}
	return nil
}

// pickPort 优先使用指定端口，被占用时选择随机空闲端口
func pickPort(preferred int) (int, error) {
	if preferred <= 0 {
		preferred = DefaultPort
	}
	if l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferred)); err == nil {
		_ = l.Close()
		return preferred, nil
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func launchArgs(port int, opts Options) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		"--user-data-dir=" + opts.ProfileDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-default-apps",
		"--disable-sync",
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}
	if opts.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if opts.StartURL != "" {
		args = append(args, opts.StartURL)
	}
	return args
}
