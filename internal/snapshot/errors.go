package snapshot

import "errors"

// ErrCodeExhausted 操作代码生成重试耗尽. The write must abort: persisting a
// duplicate code would break the catalog uniqueness invariant.
var ErrCodeExhausted = errors.New("failed to generate a unique operation code")
