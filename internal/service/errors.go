// 文件路径: internal/service/errors.go
// 模块说明: 服务层的哨兵错误，HTTP 层据此映射状态码。
package service

import (
	"errors"

	"github.com/creamcroissant/formboard/internal/repository"
)

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found / 未找到资源")
	// ErrInvalidInput indicates the request payload failed validation.
	ErrInvalidInput = errors.New("service: invalid input / 参数无效")
	// ErrConflict indicates a uniqueness constraint would be violated.
	ErrConflict = errors.New("service: conflict / 数据冲突")
)

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
