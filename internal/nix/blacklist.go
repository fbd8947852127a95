package nix

// blacklist is the fixed deny-list of attributes excluded from building
// regardless of diff or filter results. Each entry is known to hang or
// crash the build engine when built from an expression file.
var blacklist = map[string]struct{}{
	"tests.nixos-functions.nixos-test":          {},
	"tests.nixos-functions.nixos-configuration": {},
	"tests.php.overrides":                       {},
	"appimage-run-tests":                        {},
	"nixos-install-tools":                       {},
}

// IsBlacklisted reports whether the attribute name is on the fixed
// deny-list.
func IsBlacklisted(name string) bool {
	_, ok := blacklist[name]
	return ok
}
