package auth

import (
	"html/template"
	"net/http"
)

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>img2img studio - Login</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            background: #1a1a2e;
            color: #fff;
        }
        .login { width: 100%; max-width: 360px; padding: 40px; border-radius: 12px; background: rgba(255,255,255,0.06); }
        h1 { font-size: 24px; margin-bottom: 24px; text-align: center; }
        .error { min-height: 20px; margin-bottom: 12px; color: #f87171; font-size: 14px; }
        label { display: block; margin-bottom: 6px; font-size: 14px; }
        input { width: 100%; padding: 10px; border-radius: 6px; border: 1px solid #444; background: #111; color: #fff; }
        button { width: 100%; margin-top: 16px; padding: 10px; border: 0; border-radius: 6px; background: #6366f1; color: #fff; cursor: pointer; }
    </style>
</head>
<body>
    <form class="login" method="POST" action="/login">
        <h1>img2img studio</h1>
        <div class="error">{{.Error}}</div>
        <label for="password">Password</label>
        <input type="password" id="password" name="password" required autofocus>
        <button type="submit">Sign In</button>
    </form>
</body>
</html>`))

type loginPageData struct {
	Error string
}

func renderLoginPage(w http.ResponseWriter, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := loginTemplate.Execute(w, loginPageData{Error: errMsg}); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
