package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"timeledger-backend/db"
	"timeledger-backend/lib/bundle"
	"timeledger-backend/lib/ledger"
	ledgerstore "timeledger-backend/lib/ledger/store"
	offlinequeue "timeledger-backend/lib/offline-queue"
	ledgerapimodels "timeledger-backend/models/api/ledger"
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Проверка журнала отметок и аудиторских пакетов",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		lvl, err := log.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			lvl = log.WarnLevel
		}
		log.SetLevel(lvl)
	},
}

var verifyBundleCmd = &cobra.Command{
	Use:   "verify-bundle <bundle.zip>",
	Short: "Сверка архива с манифестом и пересчёт хэшей цепочек",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "ошибка открытия архива")
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return errors.Wrap(err, "ошибка чтения архива")
		}
		verified, err := bundle.Verify(f, info.Size())
		if err != nil {
			return err
		}
		checks, err := bundle.RecheckChains(f, info.Size())
		if err != nil {
			return err
		}
		ok := verified.OK()
		for _, check := range checks {
			ok = ok && check.Consistent()
		}
		report := struct {
			OK     bool                `json:"ok"`
			Files  bundle.VerifyResult `json:"files"`
			Chains []bundle.ChainCheck `json:"chains"`
		}{ok, verified, checks}
		if err = printJSON(cmd, report); err != nil {
			return err
		}
		if !ok {
			return errors.New("архив не прошёл проверку")
		}
		return nil
	},
}

var verifyChainCmd = &cobra.Command{
	Use:   "verify-chain",
	Short: "Проверка цепочки сотрудника в БД",
	RunE: func(cmd *cobra.Command, args []string) error {
		employeeID := viper.GetString("employee")
		if employeeID == "" {
			return errors.New("не указан сотрудник (--employee)")
		}
		rng, err := ledgerapimodels.RangeQuery{From: viper.GetString("from"), To: viper.GetString("to")}.Range()
		if err != nil {
			return err
		}
		err = db.Connect(viper.GetString("db-host"), viper.GetString("db-port"), viper.GetString("db-name"),
			viper.GetString("db-user"), viper.GetString("db-password"), false, false)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
		defer cancel()
		verdict, err := ledger.NewInstance(ledgerstore.NewInstance(db.DB), 1).VerifyChain(ctx, employeeID, rng)
		if err != nil {
			return err
		}
		if err = printJSON(cmd, verdict); err != nil {
			return err
		}
		if !verdict.IsOK() {
			return errors.Errorf("цепочка нарушена: %s", verdict.Status)
		}
		return nil
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "queue-status",
	Short: "Состояние офлайн-очереди отметок",
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, err := offlinequeue.Open(viper.GetString("queue-path"))
		if err != nil {
			return err
		}
		defer queue.Close()
		count, err := queue.Count(cmd.Context())
		if err != nil {
			return err
		}
		pending, err := queue.Pending(cmd.Context(), viper.GetInt("queue-max-retries"), 0)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]interface{}{
			"total":     count,
			"pending":   len(pending),
			"exhausted": count - int64(len(pending)),
		})
	},
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func init() {
	viper.SetEnvPrefix("LEDGERCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().StringP("log-level", "l", "warn", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	flags := verifyChainCmd.Flags()
	flags.String("employee", "", "employee ID")
	flags.String("from", "", "period start, RFC3339")
	flags.String("to", "", "period end, RFC3339")
	flags.String("db-host", "127.0.0.1", "database host")
	flags.String("db-port", "5432", "database port")
	flags.String("db-name", "time-ledger", "database name")
	flags.String("db-user", "postgres", "database user")
	flags.String("db-password", "postgres", "database password")
	flags.Duration("timeout", time.Minute, "verification timeout")
	viper.BindPFlags(flags)

	queueFlags := queueStatusCmd.Flags()
	queueFlags.String("queue-path", "offline_queue.db", "offline queue sqlite file")
	queueFlags.Int("queue-max-retries", 5, "retries after which an action is skipped")
	viper.BindPFlags(queueFlags)

	rootCmd.AddCommand(verifyBundleCmd, verifyChainCmd, queueStatusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}
