// 文件路径: internal/api/handler/etag.go
// 模块说明: 处理器向 ETag 中间件发布本次响应的数据来源。
package handler

import (
	"context"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
)

// publishList exposes the listed query. It stays lazy; the finalizer re-evaluates it.
func publishList[T any](ctx context.Context, q repository.Query[T]) {
	etag.SetCollection(ctx, q)
}

func publishObject(ctx context.Context, e etag.Entity) {
	etag.SetObject(ctx, e)
}

// publishVersion overrides the tag with a value the handler computed itself.
func publishVersion(ctx context.Context, version string) {
	etag.SetData(ctx, version)
}
