package course

import (
	"html/template"
	"strings"

	"github.com/pkg/errors"
)

// exportTmpl lays out the printable course: cover page, objective, outcome,
// index, then one page per lesson with video credits. The renderer handles
// page breaks via the page-break-before rule.
var exportTmpl = template.Must(template.New("course-export").Funcs(template.FuncMap{
	"nl2br": nl2br,
}).Parse(`<html>
<head>
<style>
	body {
		font-family: 'Segoe UI', sans-serif;
		margin: 0;
		background-color: white;
		color: black;
		-webkit-print-color-adjust: exact;
	}
	.page { padding: 100px 60px; }
	.cover-page {
		text-align: center;
		display: flex;
		flex-direction: column;
		justify-content: center;
		align-items: center;
		height: 100vh;
	}
	h1, h2, h3, a { color: #03d9c5; text-decoration: none; }
	h1 { font-size: 2.5em; }
	h2 { border-bottom: 1px solid #ddd; padding-bottom: 10px; margin-top: 0; }
	.page-break { page-break-before: always; }
	ul { list-style-type: none; padding-left: 0; }
	li { margin-bottom: 8px; padding-left: 1rem; border-left: 2px solid #03d9c5; }
</style>
</head>
<body>
	<div class="page cover-page"><h1>{{.Topic}}</h1></div>

	<div class="page-break"></div>
	<div class="page">
		<h2>Objective</h2>
		<p>{{nl2br .Objective}}</p>
	</div>

	<div class="page-break"></div>
	<div class="page">
		<h2>Outcome</h2>
		<p>{{nl2br .Outcome}}</p>
	</div>

	<div class="page-break"></div>
	<div class="page">
		<h1>Course Index</h1>
		{{range .Index.Subtopics}}
		<div>
			<h3>{{.Title}}</h3>
			<ul>
			{{range .Lessons}}<li>{{.Title}}</li>{{end}}
			</ul>
		</div>
		{{end}}
	</div>

	{{range .Index.Subtopics}}{{range .Lessons}}
	<div class="page-break"></div>
	<div class="page">
		<h2>{{.Title}}</h2>
		{{if .VideoHistory}}
			{{range .VideoHistory}}
			<p>Watch the video: <a href="{{.VideoURL}}" target="_blank" rel="noopener noreferrer">{{.VideoURL}}</a></p>
			<p>Credit: <a href="https://www.youtube.com/channel/{{.VideoChannelID}}" target="_blank" rel="noopener noreferrer">{{.VideoChannelTitle}}</a></p>
			{{end}}
		{{else if .VideoURL}}
			<p>Watch the video: <a href="{{.VideoURL}}" target="_blank" rel="noopener noreferrer">{{.VideoURL}}</a></p>
			<p>Credit: <a href="https://www.youtube.com/channel/{{.VideoChannelID}}" target="_blank" rel="noopener noreferrer">{{.VideoChannelTitle}}</a></p>
		{{end}}
		<div>{{nl2br .Content}}</div>
	</div>
	{{end}}{{end}}
</body>
</html>`))

func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func renderExportHTML(crs Course) (string, error) {
	var buf strings.Builder
	if err := exportTmpl.Execute(&buf, crs); err != nil {
		return "", errors.Wrap(err, "executing export template")
	}
	return buf.String(), nil
}
