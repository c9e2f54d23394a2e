package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/enem-practice/backend/internal/historyclient"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/questions"
)

func main() {
	flagQuestionAPI := pflag.String("question-api", "https://api.enem.dev/v1", "base URL of the question API or of a server's question proxy")
	flagServer := pflag.String("server", "", "history server base URL; empty practises anonymously")
	flagToken := pflag.String("token", os.Getenv("ENEM_TOKEN"), "identity token for the history server (default $ENEM_TOKEN)")
	flagQuestion := pflag.String("question", "2023-1", "question to start from, as year-index")
	flagTimeout := pflag.Duration("timeout", historyclient.DefaultCallTimeout, "per-request timeout")
	flagDiscipline := pflag.String("discipline", "", "only list questions of this discipline, e.g. matematica")
	flagLanguage := pflag.String("language", "", "only list questions of this foreign language, e.g. ingles")
	flagVerbose := pflag.BoolP("verbose", "v", false, "log requests to stderr")
	pflag.Parse()

	log := logger.NewNop()
	if *flagVerbose {
		l, err := logger.New("development")
		if err != nil {
			fmt.Fprintln(os.Stderr, "logger:", err)
			os.Exit(1)
		}
		log = l
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &app{
		source: questions.NewHTTPSource(*flagQuestionAPI, *flagTimeout, log),
		state:  historyclient.NewState(log, historyclient.WithCallTimeout(*flagTimeout)),
		filter: questions.Filter{Discipline: *flagDiscipline, Language: *flagLanguage},
		in:     os.Stdin,
		out:    os.Stdout,
		now:    time.Now,
	}
	if *flagServer != "" && *flagToken != "" {
		client := historyclient.NewClient(*flagServer, *flagToken, &http.Client{Timeout: *flagTimeout})
		if err := app.state.SignIn(ctx, client); err != nil {
			fmt.Fprintln(os.Stderr, "could not load history:", err)
		}
		app.remote = client
	}
	if err := app.run(ctx, *flagQuestion); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
