package loop

import "errors"

// ErrClosed はクローズ済みの Dispatcher に処理を投入しようとした場合に返されます。
var ErrClosed = errors.New("dispatcher is closed")
