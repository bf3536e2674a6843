package main

import (
	"fmt"
	"os"
	"text/template"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// initAnswers collects the wizard's input for the config template.
type initAnswers struct {
	Token   string
	From    string
	To      string
	Listen  string
	UseEnv  bool
	OutPath string
}

var configTemplate = template.Must(template.New("config").Parse(`version: "1"

telegram:
  {{if .UseEnv}}token: ${TG_BOT_TOKEN}{{else}}token: "{{.Token}}"{{end}}

pairs:
  from: ["{{.From}}"]
  to: ["{{.To}}"]

poll:
  interval: 30s
  batch_size: 50

storage:
  data_dir: ./data
{{if .Listen}}
gateway:
  listen: "{{.Listen}}"
{{end}}`))

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(_ *cobra.Command, _ []string) error {
			answers := initAnswers{OutPath: "mirrorgram.yaml"}

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Bot token").
						Description("From @BotFather; leave empty to reference $TG_BOT_TOKEN instead").
						Value(&answers.Token),
					huh.NewInput().
						Title("Source chat").
						Description("t.me/c/ link, or chat id with optional /topic").
						Value(&answers.From).
						Validate(validateLink),
					huh.NewInput().
						Title("Destination chat").
						Value(&answers.To).
						Validate(validateLink),
					huh.NewInput().
						Title("Gateway listen address").
						Description("Empty disables the HTTP status endpoint").
						Value(&answers.Listen),
					huh.NewInput().
						Title("Output path").
						Value(&answers.OutPath),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
			answers.UseEnv = answers.Token == ""

			f, err := os.OpenFile(answers.OutPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
			if err != nil {
				return fmt.Errorf("create %s: %w", answers.OutPath, err)
			}
			defer f.Close()

			if err := configTemplate.Execute(f, answers); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", answers.OutPath)
			if answers.UseEnv {
				fmt.Println("Set TG_BOT_TOKEN before starting.")
			}
			return nil
		},
	}
}

func validateLink(link string) error {
	_, err := message.ParseChatLink(link)
	return err
}
