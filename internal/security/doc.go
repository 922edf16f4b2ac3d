// Package security holds the symmetric crypto used for the local license
// file: scrypt key derivation and an AES-256-CBC codec producing
// "hex(iv):hex(ciphertext)" blobs.
package security
