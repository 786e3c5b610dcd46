package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/wfunc/party-game/internal/api"
	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/store"
	"github.com/wfunc/party-game/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store      store.Store
	hub        *websocket.Hub
	router     *api.Router
	httpServer *http.Server
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动派对游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
		zap.String("store_backend", s.cfg.Store.Backend),
	)

	// 初始化状态存储
	st, err := store.New(&s.cfg.Store)
	if err != nil {
		return err
	}
	s.store = st

	// 启动WebSocket推送中心
	s.hub = websocket.NewHub(logger.GetModuleLogger("websocket"))
	go s.hub.Run()

	// 创建API路由
	s.router = api.NewRouter(s.cfg, s.store, s.hub, logger.GetModuleLogger("api"))

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.cfg = newCfg
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("配置已重新加载")
	})

	s.logger.Info("服务器启动成功", zap.String("http", addr))
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求，等待进行中的请求完成
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务器关闭超时", zap.Error(err))
	}

	// 关闭状态存储
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("关闭状态存储失败", zap.Error(err))
		}
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("派对游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("派对游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  party-game-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  PARTY_GAME_SERVER_PORT   HTTP端口")
	fmt.Println("  PARTY_GAME_STORE_BACKEND 存储后端 (db/file)")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  party-game-server -config=/path/to/config.yaml")
	fmt.Println("  party-game-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║    ____            _            ____                      ║
║   |  _ \ __ _ _ __| |_ _   _   / ___| __ _ _ __ ___   ___ ║
║   | |_) / _` + "`" + ` | '__| __| | | | | |  _ / _` + "`" + ` | '_ ` + "`" + ` _ \ / _ \║
║   |  __/ (_| | |  | |_| |_| | | |_| | (_| | | | | | |  __/║
║   |_|   \__,_|_|   \__|\__, |  \____|\__,_|_| |_| |_|\___|║
║                        |___/                              ║
║                                                           ║
║                   派对游戏协调服务器                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Println("═══════════════════════════════════════════════════════════════")
}
