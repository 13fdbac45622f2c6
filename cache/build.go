package cache

import (
	"context"

	"github.com/chazu/pasc/artifact"
	"github.com/chazu/pasc/compiler"
	"github.com/chazu/pasc/compiler/hash"
	"github.com/tliron/commonlog"
)

// Build compiles src, consulting s first. A source whose listing key is
// already cached skips analysis and code generation. A nil Store
// compiles without caching. The boolean reports a cache hit.
//
// Cache failures are logged and otherwise ignored; only compile errors are
// returned.
func Build(ctx context.Context, s *Store, src string, log commonlog.Logger) (*artifact.Object, bool, error) {
	if s == nil {
		res, err := compiler.CompileWithLogger(src, log)
		if err != nil {
			return nil, false, err
		}
		return artifact.FromResult(res), false, nil
	}

	prog, err := compiler.Parse(src)
	if err != nil {
		return nil, false, err
	}

	if obj, ok, err := s.Get(ctx, hash.ListingKey(prog)); err != nil {
		log.Warningf("cache lookup failed: %v", err)
	} else if ok && obj.HashVersion == hash.HashVersion {
		log.Debugf("using cached object for %s", prog.Name)
		return obj, true, nil
	}

	res, err := compiler.CompileWithLogger(src, log)
	if err != nil {
		return nil, false, err
	}
	obj := artifact.FromResult(res)
	if err := s.Put(ctx, obj); err != nil {
		log.Warningf("cache store failed: %v", err)
	}
	return obj, false, nil
}
