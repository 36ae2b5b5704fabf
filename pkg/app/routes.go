package app

// initDefaultRoutes initializes the applications default routes.
//  These are the routes which always are the same in every application.
//  Things like user api, version, ...
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["last"] {
		api.Get("/last", app.HandleLast())
	}
	if app.config.Webserver.Webservices["encode"] {
		api.Post("/encode", app.HandleEncode())
	}
	if app.config.Webserver.Webservices["decode"] {
		api.Post("/decode", app.HandleDecode())
	}
	if app.config.Webserver.Webservices["remotes"] {
		api.Get("/remotes", app.HandleRemotes())
	}
	if app.config.Webserver.Webservices["send"] {
		api.Post("/remotes/:remote/:signal/send", app.HandleSend())
	}
	if app.config.Webserver.Webservices["learn"] {
		api.Post("/remotes/:remote/:signal/learn", app.HandleLearn())
	}
}
