// Package request assembles signed request envelopes.
//
// An Assembler collects plain parameters, encrypted parameters and file
// attachments for one call. Build stamps the request with the session
// clock, encrypts the encrypted channel, and signs the result:
//
//	asm := request.NewAssembler(sess)
//	_ = asm.SetCommand("echo")
//	_ = asm.AddParameter("message", "hello")
//	_ = asm.AddEncryptedParameter("email", "alice@example.com")
//	_ = asm.AddFilePath("avatar", "/tmp/avatar.png")
//
//	env, err := asm.Build()
//
// Failures are *apierror.Error values and are also recorded on the
// session's last-error snapshot and trace log.
package request
