package redis

// Manager Redis统一管理器接口
type Manager interface {
	// GetClient 获取基础Redis客户端
	GetClient() Client

	// GetSession 获取Session管理器
	GetSession() SessionManager

	// GetLoginLimiter 获取登录限制器
	GetLoginLimiter() LoginLimiter
}

type manager struct {
	client       Client
	session      SessionManager
	loginLimiter LoginLimiter
}

// NewManager 创建Redis管理器
func NewManager(client Client, session SessionManager, loginLimiter LoginLimiter) Manager {
	return &manager{
		client:       client,
		session:      session,
		loginLimiter: loginLimiter,
	}
}

func (m *manager) GetClient() Client {
	return m.client
}

func (m *manager) GetSession() SessionManager {
	return m.session
}

func (m *manager) GetLoginLimiter() LoginLimiter {
	return m.loginLimiter
}
