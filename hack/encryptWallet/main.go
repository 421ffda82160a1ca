package main

import (
	"context"
	"flag"
	"os"

	"github.com/Layr-Labs/permaweb-uploader-go/internal/aws"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/keystore"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/logger"
)

// Encrypts a wallet JWK with a KMS key so it can be passed as --wallet-kms-file.
func main() {
	in := flag.String("in", "", "plaintext wallet JWK")
	out := flag.String("out", "", "encrypted output file")
	keyID := flag.String("key-id", "", "KMS key id, ARN or alias")
	region := flag.String("region", "", "AWS region")
	flag.Parse()

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if *in == "" || *out == "" || *keyID == "" {
		l.Sugar().Fatalw("Usage: encryptWallet -in wallet.json -out wallet.kms -key-id alias/wallet [-region us-east-1]")
	}

	ctx := context.Background()
	raw, err := os.ReadFile(*in)
	if err != nil {
		l.Sugar().Fatalw("Failed to read wallet", "error", err)
	}
	key, err := keystore.ParseJWK(raw)
	if err != nil {
		l.Sugar().Fatalw("Wallet is not a valid RSA JWK", "error", err)
	}

	awsCfg, err := aws.LoadAWSConfig(ctx, *region)
	if err != nil {
		l.Sugar().Fatalw("Failed to load AWS config", "error", err)
	}
	ciphertext, err := aws.NewKMSDecrypter(awsCfg, *keyID, l).Encrypt(ctx, raw)
	if err != nil {
		l.Sugar().Fatalw("Failed to encrypt wallet", "error", err)
	}
	if err := os.WriteFile(*out, ciphertext, 0o600); err != nil {
		l.Sugar().Fatalw("Failed to write encrypted wallet", "error", err)
	}
	l.Sugar().Infow("Encrypted wallet", "address", key.Address(), "out", *out, "key_id", *keyID)
}
