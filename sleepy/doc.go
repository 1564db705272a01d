// Package sleepy implements the core of the Sleepy Discord bot: the
// bot lifecycle, configuration, prefix command routing, the cached
// HTTP requester, extension loading, pagination menus, and permission
// checks.
//
// All gateway and REST protocol handling is delegated to
// [github.com/bwmarrin/discordgo]; this package is the orchestration
// layer binding that library's event model to YAML-configured behavior
// and a set of feature extensions (see the ext directory).
package sleepy
