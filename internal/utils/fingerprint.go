package utils

import (
	"encoding/hex"
	"encoding/json"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"golang.org/x/crypto/blake2b"
)

// ProjectFingerprint 返回项目 JSON 编码的 blake2b-256 摘要，内容相同的项目指纹相同
func ProjectFingerprint(p *domain.Project) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
