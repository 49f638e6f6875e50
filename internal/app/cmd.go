package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモード（スケジューラ＋キューコンシューマ）で起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandRun は指定トピックの検索実行を1回だけ行うことを示す。
	CommandRun Command = "run"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "worker":
		return CommandWorker
	case "migrate":
		return CommandMigrate
	case "run":
		return CommandRun
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// RunOptions は run サブコマンドのオプション。
type RunOptions struct {
	TopicID string
	Async   bool
}

// ParseRunOptions は run サブコマンドの引数を解析する。
// argsには "run" を除いた残りの引数を渡す。
func ParseRunOptions(args []string) RunOptions {
	opts := RunOptions{}
	for _, arg := range args {
		if arg == "--async" {
			opts.Async = true
			continue
		}
		if opts.TopicID == "" {
			opts.TopicID = arg
		}
	}
	return opts
}
