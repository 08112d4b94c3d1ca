package app

import (
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/modules/export"
	"github.com/vk/mediaflowgo/modules/generate"
	"github.com/vk/mediaflowgo/modules/merge"
	"github.com/vk/mediaflowgo/modules/prompt"
	"github.com/vk/mediaflowgo/modules/queue"
	"github.com/vk/mediaflowgo/modules/transform"
)

// coreModules is the default node type set registered when no explicit
// modules are passed to New.
func coreModules() []registry.Module {
	return []registry.Module{
		&prompt.Module{},
		&queue.Module{},
		generate.NewModule(0),
		&transform.Module{},
		&merge.Module{},
		&export.Module{},
	}
}
