package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename 把客户端文件名转换为可安全存储的名字
//
//	去掉目录 → NFKD 分解并丢弃非 ASCII → 空白替换为 _ → 仅保留 [A-Za-z0-9._-] → 去掉首尾的 . 和 _
func SanitizeFilename(name string) (string, error) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r > unicode.MaxASCII:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "", ErrBadFilename
	}
	return cleaned, nil
}

// fileExt 小写扩展名，不含点
func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// pictureObjectName user_{id}_{stamp}_{sanitized}，清洗后丢失扩展名时补回
func pictureObjectName(userID uint64, stamp int64, sanitized, ext string) string {
	if fileExt(sanitized) != ext {
		sanitized = sanitized + "." + ext
	}
	return fmt.Sprintf("user_%d_%d_%s", userID, stamp, sanitized)
}

// ============================================================================
// 上传时间戳
// ============================================================================

// stampSource 毫秒时间戳，进程内严格递增
type stampSource struct {
	last atomic.Int64
	now  func() time.Time
}

func (s *stampSource) Next() int64 {
	for {
		last := s.last.Load()
		stamp := s.now().UnixMilli()
		if stamp <= last {
			stamp = last + 1
		}
		if s.last.CompareAndSwap(last, stamp) {
			return stamp
		}
	}
}

var uploadStamps = &stampSource{now: time.Now}
