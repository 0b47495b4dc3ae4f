package etcd

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
	"go.etcd.io/etcd/server/v3/etcdserver/api/v3client"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

const defaultReadyTimeout = 30 * time.Second

// EmbedConfig 描述嵌入式 etcd 服务的启动参数。
type EmbedConfig struct {
	// ConfigPath 非空时从 etcd 配置文件加载，其余字段覆盖文件中的对应项。
	ConfigPath string
	DataDir    string
	LogPath    string
	LogLevel   string
	// ReadyTimeout 为等待服务就绪的最长时间，0 表示使用默认值。
	ReadyTimeout time.Duration
}

// EmbedServer 是一个进程内 etcd 服务。
type EmbedServer struct {
	etcd *embed.Etcd
}

// StartEmbedServer 启动嵌入式 etcd 服务，并在服务就绪后返回。
// 未指定配置文件时，客户端与节点端口从本机随机选取。
func StartEmbedServer(cfg EmbedConfig) (*EmbedServer, error) {
	var (
		ecfg *embed.Config
		err  error
	)
	if cfg.ConfigPath != "" {
		ecfg, err = embed.ConfigFromFile(cfg.ConfigPath)
		if err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("invalid etcd config %s: %v", cfg.ConfigPath, err)
		}
	} else {
		ecfg = embed.NewConfig()
		if err := useFreePorts(ecfg); err != nil {
			return nil, err
		}
	}
	if cfg.DataDir != "" {
		ecfg.Dir = cfg.DataDir
	}
	ecfg.LogOutputs = []string{"stderr"}
	if cfg.LogPath != "" {
		ecfg.LogOutputs = []string{cfg.LogPath}
	}
	ecfg.LogLevel = "warn"
	if cfg.LogLevel != "" {
		ecfg.LogLevel = cfg.LogLevel
	}

	e, err := embed.StartEtcd(ecfg)
	if err != nil {
		log.Error("failed to start embedded etcd", zap.String("data", ecfg.Dir), zap.Error(err))
		return nil, merr.WrapErrIoFailed(ecfg.Dir, err)
	}

	timeout := cfg.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(timeout):
		e.Server.Stop()
		e.Close()
		return nil, merr.WrapErrIoFailed(ecfg.Dir, errors.Newf("etcd not ready after %s", timeout))
	}
	log.Info("embedded etcd started",
		zap.String("config", cfg.ConfigPath),
		zap.String("data", ecfg.Dir),
		zap.Stringer("client", &ecfg.ListenClientUrls[0]))
	return &EmbedServer{etcd: e}, nil
}

// Client 返回直连进程内服务的 v3 客户端。
func (s *EmbedServer) Client() *clientv3.Client {
	return v3client.New(s.etcd.Server)
}

// Endpoints 返回服务监听的客户端地址。
func (s *EmbedServer) Endpoints() []string {
	out := make([]string, 0, len(s.etcd.Clients))
	for _, l := range s.etcd.Clients {
		out = append(out, l.Addr().String())
	}
	return out
}

func (s *EmbedServer) Close() {
	s.etcd.Close()
}

func useFreePorts(cfg *embed.Config) error {
	client, err := freeURL()
	if err != nil {
		return err
	}
	peer, err := freeURL()
	if err != nil {
		return err
	}
	cfg.ListenClientUrls = []url.URL{client}
	cfg.AdvertiseClientUrls = []url.URL{client}
	cfg.ListenPeerUrls = []url.URL{peer}
	cfg.AdvertisePeerUrls = []url.URL{peer}
	cfg.InitialCluster = cfg.InitialClusterFromName(cfg.Name)
	return nil
}

func freeURL() (url.URL, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return url.URL{}, merr.WrapErrIoFailed("127.0.0.1:0", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port
	return url.URL{Scheme: "http", Host: net.JoinHostPort("127.0.0.1", strconv.Itoa(port))}, nil
}
