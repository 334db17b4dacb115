package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/betbot/tradegw/pkg/keystore"
)

const usage = `usage: keyctl [flags] <command> [args]

commands:
  register <apikey> [secret]   注册或覆盖 apikey（secret 为空时随机生成）
  revoke   <apikey>            删除 apikey
  list                         列出已注册的 apikey
  import   <file.env>          从 .env 文件批量导入（KEY=SECRET）

网关运行时持有 keystore 的只读锁，修改前需要先停掉网关。
`

func main() {
	_ = godotenv.Load()

	var (
		dbPath    = flag.String("badger", getenv("TRADEGW_KEYSTORE_PATH", "data/keys.badger"), "badger keystore path")
		secretKey = flag.String("secret-key", getenv("TRADEGW_KEYSTORE_ENCRYPTION_KEY", ""), "badger encryption key (32 bytes base64/hex)")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	keyBytes, err := keystore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	ks, err := keystore.Open(keystore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
		ReadOnly:      args[0] == "list",
	})
	if err != nil {
		fatal(err)
	}
	defer ks.Close()

	switch args[0] {
	case "register":
		if len(args) < 2 {
			fatal(fmt.Errorf("register 需要 apikey"))
		}
		secret := ""
		if len(args) > 2 {
			secret = args[2]
		}
		if secret == "" {
			if secret, err = randomSecret(); err != nil {
				fatal(err)
			}
		}
		if err := ks.Register(args[1], secret); err != nil {
			fatal(err)
		}
		fmt.Printf("%s\t%s\n", args[1], secret)

	case "revoke":
		if len(args) < 2 {
			fatal(fmt.Errorf("revoke 需要 apikey"))
		}
		if err := ks.Revoke(args[1]); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "已删除 %s\n", args[1])

	case "list":
		keys, err := ks.List()
		if err != nil {
			fatal(err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}

	case "import":
		if len(args) < 2 {
			fatal(fmt.Errorf("import 需要 .env 文件路径"))
		}
		kv, err := godotenv.Read(args[1])
		if err != nil {
			fatal(err)
		}
		written := 0
		for k, v := range kv {
			if err := ks.Register(k, v); err != nil {
				fatal(err)
			}
			written++
		}
		fmt.Fprintf(os.Stderr, "已导入 %d 个 apikey 到 %s\n", written, *dbPath)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
