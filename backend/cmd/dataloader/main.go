// Command dataloader runs the bundled SQL scripts against the target
// database during deployment. Scripts execute in lexical order inside one
// transaction, so a failed deploy leaves the database untouched.
package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/dflwa"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	// Database drivers selected at runtime via DF_DB_ENGINE.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

type Env struct {
	dflwa.BaseEnvironment
	ScriptsBucket string `env:"DF_SQL_BUCKET,required"`
	ScriptsKey    string `env:"DF_SQL_KEY,required"`
	DBEngine      string `env:"DF_DB_ENGINE,required"`
	DBSecretArn   string `env:"DF_DB_SECRET_ARN,required"`
	DBName        string `env:"DF_DB_NAME,required"`
}

// dbCredentials is the JSON shape of the Secrets Manager secret.
type dbCredentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func main() {
	dflwa.NewApp[Env](
		func(m *dflwa.Mux) {
			m.HandleFunc("POST /l/load-data", handleLoadData)
		},
		dflwa.WithAWSClient(func(cfg aws.Config) *s3.Client {
			return s3.NewFromConfig(cfg)
		}),
		dflwa.WithAWSClient(func(cfg aws.Config) *secretsmanager.Client {
			return secretsmanager.NewFromConfig(cfg)
		}),
	).Run()
}

func handleLoadData(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)

	scripts, err := fetchScripts(ctx, env)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		log.Warn("script bundle contains no sql files")
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(map[string]int{"executed": 0})
	}

	creds, err := fetchCredentials(ctx, env)
	if err != nil {
		return err
	}

	db, err := sqlx.ConnectContext(ctx, driverName(env.DBEngine), dsn(env, creds))
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	if err := executeAll(ctx, db, scripts); err != nil {
		return err
	}

	log.Info("executed sql scripts",
		zap.String("engine", env.DBEngine),
		zap.String("database", env.DBName),
		zap.Int("scripts", len(scripts)))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]int{"executed": len(scripts)})
}

// sqlScript is one file from the bundle.
type sqlScript struct {
	name    string
	content string
}

// fetchScripts downloads the script bundle and returns its .sql files in
// lexical order.
func fetchScripts(ctx context.Context, env Env) ([]sqlScript, error) {
	client := dflwa.AWS[s3.Client](ctx)
	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(env.ScriptsBucket),
		Key:    aws.String(env.ScriptsKey),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get script bundle %q", env.ScriptsKey)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read script bundle")
	}

	// The bundle is the zip archive the asset packaging produced.
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open script bundle")
	}

	var scripts []sqlScript
	for _, file := range archive.File {
		if !strings.HasSuffix(file.Name, ".sql") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open script %q", file.Name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read script %q", file.Name)
		}
		scripts = append(scripts, sqlScript{name: file.Name, content: string(content)})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].name < scripts[j].name })
	return scripts, nil
}

func fetchCredentials(ctx context.Context, env Env) (dbCredentials, error) {
	var creds dbCredentials

	client := dflwa.AWS[secretsmanager.Client](ctx)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(env.DBSecretArn),
	})
	if err != nil {
		return creds, errors.Wrap(err, "failed to get database secret")
	}
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &creds); err != nil {
		return creds, errors.Wrap(err, "failed to decode database secret")
	}
	return creds, nil
}

// executeAll runs every script inside a single transaction.
func executeAll(ctx context.Context, db *sqlx.DB, scripts []sqlScript) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, script := range scripts {
		if _, err := tx.ExecContext(ctx, script.content); err != nil {
			return errors.Wrapf(err, "script %q failed", script.name)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func driverName(engine string) string {
	if engine == "postgres" {
		return "postgres"
	}
	return "mysql"
}

func dsn(env Env, creds dbCredentials) string {
	if env.DBEngine == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=require",
			creds.Username, creds.Password, creds.Host, creds.Port, env.DBName)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?multiStatements=true&parseTime=true",
		creds.Username, creds.Password, creds.Host, creds.Port, env.DBName)
}
