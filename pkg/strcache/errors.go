package strcache

import (
	"github.com/justyntemme/vst3host/pkg/hosterr"
)

func errUnknownKey(k Key) error {
	return hosterr.InvalidArgument("key", "Unknown string cache key").WithContext("key", int(k))
}
