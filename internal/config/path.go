package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	TemplatesLocalDir = "templates"

	TemplateLayout = "layout.html"
	TemplateIndex  = "index.html"
	TemplateEditor = "editor.html"
	TemplateAuth   = "ed25519_auth.html"

	TemplateNameAuth = "auth"
)

const (
	StorageSQLite = "sqlite"
	StorageS3     = "s3"
)

const (
	AuthTypeEd25519 = "ed25519"
	AuthTypeClerk   = "clerk"
)
