package rbac

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"quiz:submit",
		"attempt:view-own",
	},
	"teacher": {
		"quiz:view",
		"quiz:create",
		"quiz:submit",
		"attempt:view-all",
	},
	"admin": {
		"*",
	},
}
